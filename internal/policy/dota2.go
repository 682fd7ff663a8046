package policy

// dota2AppID is Dota 2's Steam application id.
const dota2AppID = "570"

// Dota2Policy implements AppPolicy for Dota 2.
type Dota2Policy struct{}

// NewDota2Policy creates the Dota 2 preset.
func NewDota2Policy() *Dota2Policy {
	return &Dota2Policy{}
}

func (p *Dota2Policy) ID() string {
	return "dota2"
}

func (p *Dota2Policy) Name() string {
	return "Dota 2"
}

// ProcessNames returns the game binary. The Steam client is not included;
// combine with the steam preset to block both.
func (p *Dota2Policy) ProcessNames(goos string) []string {
	switch goos {
	case "windows":
		return []string{"dota2.exe"}
	case "darwin":
		return []string{"dota2", "dota_osx64"}
	default:
		return []string{"dota2", "dota2_linux"}
	}
}

// StartTarget launches the game through Steam.
func (p *Dota2Policy) StartTarget() string {
	return "steam://rungameid/" + dota2AppID
}

// Ensure Dota2Policy implements AppPolicy.
var _ AppPolicy = (*Dota2Policy)(nil)
