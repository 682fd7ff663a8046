//go:build integration

package integration

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/infra"
)

var _ = Describe("Snapshot stores", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focustimer-store-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	open := func(backend string) domain.SnapshotStore {
		store, err := infra.OpenStore(backend, tmpDir)
		Expect(err).NotTo(HaveOccurred())
		return store
	}

	DescribeTable("first run",
		func(backend string) {
			store := open(backend)
			defer store.Close()

			snap, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Balance).To(BeZero())
			Expect(snap.History).To(BeEmpty())
			Expect(snap.Settings).To(Equal(config.DefaultSettings()))
		},
		Entry("sqlcipher", config.BackendSQLCipher),
		Entry("sqlite", config.BackendSQLite),
		Entry("json", config.BackendJSON),
	)

	DescribeTable("survives a restart",
		func(backend string) {
			earned := 300.0
			started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
			settings := config.DefaultSettings()
			settings.Ratio = 1.5
			settings.Categories = []string{"Deep work"}
			settings.BlacklistProcesses = []string{"dota2.exe"}
			settings.Password = "pw"
			settings.ThemeMode = domain.ThemeLight

			want := domain.Snapshot{
				Balance: 1234.5,
				History: []domain.Session{
					{ID: "g1", Kind: domain.KindGame, DurationSeconds: 65, StartedAt: started.Add(time.Hour)},
					{ID: "w1", Kind: domain.KindWork, Category: "Deep work", DurationSeconds: 600, StartedAt: started, EarnedSeconds: &earned},
				},
				Settings:          settings,
				LastAllowanceDate: "2025-03-10",
			}

			store := open(backend)
			Expect(store.Save(want)).To(Succeed())
			Expect(store.Close()).To(Succeed())

			store = open(backend)
			defer store.Close()
			got, err := store.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(got.Balance).To(Equal(want.Balance))
			Expect(got.LastAllowanceDate).To(Equal(want.LastAllowanceDate))
			Expect(got.Settings).To(Equal(want.Settings))
			Expect(got.History).To(HaveLen(2))
			Expect(got.History[0].ID).To(Equal("g1"))
			Expect(got.History[0].StartedAt).To(BeTemporally("==", want.History[0].StartedAt))
			Expect(got.History[1].Category).To(Equal("Deep work"))
			Expect(got.History[1].EarnedSeconds).NotTo(BeNil())
			Expect(*got.History[1].EarnedSeconds).To(Equal(earned))
		},
		Entry("sqlcipher", config.BackendSQLCipher),
		Entry("sqlite", config.BackendSQLite),
		Entry("json", config.BackendJSON),
	)

	Describe("single instance lock", func() {
		It("should refuse a second timer on the same data directory", func() {
			path := tmpDir + "/focustimer.lock"
			first, err := infra.AcquireInstanceLock(path)
			Expect(err).NotTo(HaveOccurred())

			_, err = infra.AcquireInstanceLock(path)
			Expect(err).To(MatchError(infra.ErrAlreadyRunning))

			Expect(first.Release()).To(Succeed())
			second, err := infra.AcquireInstanceLock(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Release()).To(Succeed())
		})
	})
})
