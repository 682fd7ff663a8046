//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/daemon"
	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/infra"
	"github.com/mosmello93/focus-timer/internal/usecase"
	"github.com/mosmello93/focus-timer/test/fixtures"
)

const (
	pollInterval   = 20 * time.Millisecond
	tickInterval   = 50 * time.Millisecond
	suppressWindow = 400 * time.Millisecond
)

var _ = Describe("Session flow", func() {
	var (
		tmpDir string
		table  *fixtures.FakeProcessTable
		store  domain.SnapshotStore
		runner *daemon.Runner
		cancel context.CancelFunc
		done   chan error
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focustimer-integration-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = infra.NewSQLiteStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		table = fixtures.NewFakeProcessTable("explorer.exe")
		cancel = func() {}
	})

	AfterEach(func() {
		cancel()
		if done != nil {
			Eventually(done).Should(Receive())
			Eventually(done).Should(Receive())
			done = nil
		}
		Expect(store.Close()).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	// start saves a snapshot with the given balance and runs the watchdog and
	// the session runner on it, the way 'focustimer run' does.
	start := func(balance float64) {
		settings := config.DefaultSettings()
		settings.BlacklistProcesses = []string{"dota2.exe", "steam.exe"}
		Expect(store.Save(domain.Snapshot{
			Balance:           balance,
			Settings:          settings,
			LastAllowanceDate: time.Now().Format("2006-01-02"),
		})).To(Succeed())

		snap, err := store.Load()
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		watchdog := daemon.NewWatchdog(daemon.WatchdogConfig{
			PollInterval:   pollInterval,
			SuppressWindow: suppressWindow,
		}, table, logger)

		engineCfg := usecase.DefaultEngineConfig()
		engineCfg.SuppressWindow = suppressWindow
		engine := usecase.NewEngine(snap, usecase.EngineDeps{
			Killer:   table,
			Store:    store,
			Watchdog: watchdog,
			Logger:   logger,
		}, engineCfg)

		runner = daemon.NewRunner(daemon.RunnerConfig{TickInterval: tickInterval}, engine, watchdog.Notifications(), logger)

		ctx, c := context.WithCancel(context.Background())
		cancel = c
		done = make(chan error, 2)
		go func() { done <- watchdog.Run(ctx) }()
		go func() { done <- runner.Run(ctx) }()
	}

	view := func() usecase.View {
		var v usecase.View
		Expect(runner.Do(context.Background(), func(e *usecase.Engine) error {
			v = e.View()
			return nil
		})).To(Succeed())
		return v
	}

	mode := func() domain.Mode { return view().Mode }

	do := func(fn func(e *usecase.Engine) error) {
		Expect(runner.Do(context.Background(), fn)).To(Succeed())
	}

	Describe("automatic game sessions", func() {
		Context("when a blacklisted process starts and exits", func() {
			It("should count the balance down and record one game session", func() {
				start(100)

				table.Start("Steam.exe")
				Eventually(mode).Should(Equal(domain.ModeGaming))
				Expect(view().Notice).To(ContainSubstring("steam.exe"))

				Eventually(func() int { return view().SessionSeconds }).Should(BeNumerically(">=", 3))

				table.Exit("Steam.exe")
				Eventually(mode).Should(Equal(domain.ModeIdle))

				v := view()
				Expect(v.History).To(HaveLen(1))
				Expect(v.History[0].Kind).To(Equal(domain.KindGame))
				played := v.History[0].DurationSeconds
				Expect(played).To(BeNumerically(">=", 3))
				Expect(v.Balance).To(Equal(100 - float64(played)))

				stored, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Balance).To(Equal(v.Balance))
				Expect(stored.History).To(HaveLen(1))
				Expect(stored.History[0].ID).To(Equal(v.History[0].ID))
			})
		})

		Context("when the balance runs out", func() {
			It("should kill the blacklist and wait for acknowledgement", func() {
				start(2)

				table.Start("dota2.exe")
				Eventually(func() bool { return view().Exhausted }).Should(BeTrue())
				Eventually(func() bool { return table.IsRunning("dota2.exe") }).Should(BeFalse())
				Expect(table.Killed()).To(ContainElements("dota2.exe", "steam.exe"))

				// the process is gone but the time's-up state stays
				Consistently(mode, 3*pollInterval).Should(Equal(domain.ModeGaming))
				Expect(view().Balance).To(BeZero())

				do(func(e *usecase.Engine) error {
					e.Acknowledge()
					return nil
				})

				v := view()
				Expect(v.Mode).To(Equal(domain.ModeIdle))
				Expect(v.Exhausted).To(BeFalse())
				Expect(v.History).To(HaveLen(1))
				Expect(v.History[0].DurationSeconds).To(BeNumerically(">=", 2))
			})
		})

		Context("when the user stops a game that is still closing", func() {
			It("should not restart it within the suppression window", func() {
				start(100)

				table.Start("steam.exe")
				Eventually(mode).Should(Equal(domain.ModeGaming))

				do(func(e *usecase.Engine) error {
					e.Stop(false)
					return nil
				})

				Consistently(mode, suppressWindow/2, pollInterval).Should(Equal(domain.ModeIdle))

				// still running after the window: the level-triggered report wins
				Eventually(mode).Should(Equal(domain.ModeGaming))
			})
		})
	})

	Describe("manual work sessions", func() {
		It("should earn balance at the configured ratio", func() {
			start(0)

			do(func(e *usecase.Engine) error { return e.StartWork("Training") })
			Eventually(func() int { return view().SessionSeconds }).Should(BeNumerically(">=", 4))
			do(func(e *usecase.Engine) error {
				e.Stop(false)
				return nil
			})

			v := view()
			Expect(v.History).To(HaveLen(1))
			work := v.History[0]
			Expect(work.Kind).To(Equal(domain.KindWork))
			Expect(work.Category).To(Equal("Training"))
			Expect(work.EarnedSeconds).NotTo(BeNil())
			Expect(*work.EarnedSeconds).To(Equal(float64(work.DurationSeconds) * config.DefaultRatio))
			Expect(v.Balance).To(Equal(*work.EarnedSeconds))
		})

		It("should reject a manual game start without balance", func() {
			start(0)

			err := runner.Do(context.Background(), func(e *usecase.Engine) error { return e.StartGame() })

			Expect(err).To(MatchError(usecase.ErrInsufficientBalance))
			Expect(mode()).To(Equal(domain.ModeIdle))
		})
	})

	Describe("process table outages", func() {
		It("should report connectivity and recover", func() {
			start(100)
			Eventually(func() bool { return view().Connected }).Should(BeTrue())

			table.Break()
			Eventually(func() bool {
				v := view()
				return v.ConnectivityKnown && !v.Connected
			}).Should(BeTrue())

			table.Start("steam.exe")
			Consistently(mode, 3*pollInterval).Should(Equal(domain.ModeIdle))

			table.Repair()
			Eventually(func() bool { return view().Connected }).Should(BeTrue())
			Eventually(mode).Should(Equal(domain.ModeGaming))
		})
	})
})
