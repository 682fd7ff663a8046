package policy

// SteamPolicy implements AppPolicy for the Steam client.
type SteamPolicy struct{}

// NewSteamPolicy creates the Steam preset.
func NewSteamPolicy() *SteamPolicy {
	return &SteamPolicy{}
}

func (p *SteamPolicy) ID() string {
	return "steam"
}

func (p *SteamPolicy) Name() string {
	return "Steam"
}

// ProcessNames returns the Steam client and its web helper.
func (p *SteamPolicy) ProcessNames(goos string) []string {
	switch goos {
	case "windows":
		return []string{"steam.exe", "steamwebhelper.exe"}
	case "darwin":
		return []string{"steam_osx", "steamwebhelper", "Steam Helper"}
	default:
		return []string{"steam", "steamwebhelper"}
	}
}

func (p *SteamPolicy) StartTarget() string {
	return "steam://"
}

// Ensure SteamPolicy implements AppPolicy.
var _ AppPolicy = (*SteamPolicy)(nil)
