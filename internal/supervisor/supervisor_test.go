package supervisor_test

import (
	"bytes"
	"math"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tankdcs/internal/config"
	"github.com/san-kum/tankdcs/internal/plant"
	"github.com/san-kum/tankdcs/internal/supervisor"
)

type recorder struct {
	ticks []int
	snaps [][]plant.Snapshot
}

func (r *recorder) OnTick(tick int, elapsed float64, snaps []plant.Snapshot) {
	r.ticks = append(r.ticks, tick)
	r.snaps = append(r.snaps, snaps)
}

func quietConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Gain = 0
	cfg.Noise = 0
	cfg.TargetMin = 0
	for i := range cfg.Tanks {
		cfg.Tanks[i].Tolerance = 5
	}
	return cfg
}

func mustNew(cfg *config.Config, opts ...supervisor.Option) *supervisor.Supervisor {
	s, err := supervisor.New(cfg, opts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Supervisor", func() {
	Describe("construction", func() {
		It("starts Running with four tanks at their defaults", func() {
			s := mustNew(config.DefaultConfig())
			Expect(s.State()).To(Equal(supervisor.Running))
			Expect(s.Len()).To(Equal(4))
			Expect(s.Ticks()).To(BeZero())

			snaps := s.Snapshots()
			Expect(snaps).To(HaveLen(4))
			for i, snap := range snaps {
				Expect(snap.Index).To(Equal(i))
				Expect(snap.Level).To(Equal(50.0))
				Expect(snap.Target).To(Equal(50.0))
				Expect(snap.Status).To(Equal(plant.Stable))
			}
		})

		It("supports N tanks", func() {
			s := mustNew(config.DefaultConfig().WithTankCount(7))
			Expect(s.Tick(1)).To(HaveLen(7))
		})

		DescribeTable("refuses to start on invalid configuration",
			func(mutate func(*config.Config)) {
				cfg := config.DefaultConfig()
				mutate(cfg)
				_, err := supervisor.New(cfg)
				Expect(err).To(MatchError(plant.ErrInvalidConfiguration))
			},
			Entry("no tanks", func(c *config.Config) { c.WithTankCount(0) }),
			Entry("zero tolerance", func(c *config.Config) { c.Tanks[0].Tolerance = 0 }),
			Entry("negative tolerance", func(c *config.Config) { c.Tanks[3].Tolerance = -1 }),
			Entry("NaN dt", func(c *config.Config) { c.Dt = math.NaN() }),
			Entry("infinite disturbance_max", func(c *config.Config) { c.DisturbanceMax = math.Inf(1) }),
			Entry("infinite spill_max", func(c *config.Config) { c.SpillMax = math.Inf(1) }),
		)
	})

	Describe("Tick", func() {
		It("advances every tank and counts ticks", func() {
			s := mustNew(config.DefaultConfig())
			s.Tick(1)
			s.Tick(0.5)
			Expect(s.Ticks()).To(Equal(2))
			Expect(s.Elapsed()).To(Equal(1.5))
		})

		It("keeps every level finite and inside the clamp bounds", func() {
			cfg := config.DefaultConfig()
			cfg.Noise = 10
			s := mustNew(cfg)
			for i := 0; i < 2000; i++ {
				if i%5 == 0 {
					_, err := s.InjectRandomDisturbance(i % s.Len())
					Expect(err).NotTo(HaveOccurred())
				}
				if i%13 == 0 {
					_, err := s.TriggerSpill((i + 1) % s.Len())
					Expect(err).NotTo(HaveOccurred())
				}
				for _, snap := range s.Tick(1) {
					Expect(snap.Level).To(BeNumerically(">=", cfg.LevelMin))
					Expect(snap.Level).To(BeNumerically("<=", cfg.LevelMax))
				}
			}
		})

		It("ignores a non-positive dt", func() {
			s := mustNew(config.DefaultConfig())
			before := s.Snapshots()
			Expect(s.Tick(0)).To(Equal(before))
			Expect(s.Tick(-1)).To(Equal(before))
			Expect(s.Ticks()).To(BeZero())
		})

		It("notifies observers with the tick number", func() {
			s := mustNew(config.DefaultConfig())
			r := &recorder{}
			s.AddObserver(r)
			s.Tick(1)
			s.Tick(1)
			Expect(r.ticks).To(Equal([]int{1, 2}))
			Expect(r.snaps[1]).To(HaveLen(4))
		})

		It("hands out copies of the snapshots", func() {
			s := mustNew(config.DefaultConfig())
			snaps := s.Tick(1)
			snaps[0].Level = -999
			Expect(s.Snapshots()[0].Level).NotTo(Equal(-999.0))
		})
	})

	Describe("pause", func() {
		It("freezes the simulation until resumed", func() {
			s := mustNew(config.DefaultConfig())
			s.Tick(1)
			s.SetPause(true)
			Expect(s.State()).To(Equal(supervisor.Paused))

			frozen := s.Snapshots()
			r := &recorder{}
			s.AddObserver(r)
			for i := 0; i < 10; i++ {
				Expect(s.Tick(1)).To(Equal(frozen))
			}
			Expect(s.Ticks()).To(Equal(1))
			Expect(r.ticks).To(BeEmpty())

			s.SetPause(false)
			Expect(s.Paused()).To(BeFalse())
			s.Tick(1)
			Expect(s.Ticks()).To(Equal(2))
		})
	})

	Describe("disturbances", func() {
		It("applies an injected disturbance once on the next tick", func() {
			s := mustNew(quietConfig())
			Expect(s.InjectDisturbance(0, 20)).To(Succeed())

			pending, err := s.PendingDisturbance(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(Equal(20.0))
			Expect(s.Snapshots()[0].Level).To(Equal(50.0))

			snaps := s.Tick(1)
			Expect(snaps[0].Level).To(Equal(70.0))
			Expect(snaps[0].Status).To(Equal(plant.Alarm))
			Expect(snaps[0].Overflow).To(BeTrue())
			Expect(snaps[1].Level).To(Equal(50.0))

			pending, _ = s.PendingDisturbance(0)
			Expect(pending).To(BeZero())
			Expect(s.Tick(1)[0].Level).To(Equal(70.0))
		})

		It("draws random disturbances within the configured range", func() {
			s := mustNew(quietConfig())
			for i := 0; i < 200; i++ {
				m, err := s.InjectRandomDisturbance(2)
				Expect(err).NotTo(HaveOccurred())
				Expect(m).To(BeNumerically(">=", -config.DefaultDisturbanceMax))
				Expect(m).To(BeNumerically("<=", config.DefaultDisturbanceMax))
			}
		})

		It("pushes a spill sample into overflow", func() {
			s := mustNew(quietConfig())
			m, err := s.TriggerSpill(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNumerically(">=", config.DefaultSpillMin))
			Expect(m).To(BeNumerically("<=", config.DefaultSpillMax))
			Expect(s.Tick(1)[1].Overflow).To(BeTrue())
		})

		It("rejects a tank index that does not exist", func() {
			s := mustNew(config.DefaultConfig())
			Expect(s.InjectDisturbance(99, 5)).To(MatchError(plant.ErrIndexOutOfRange))
			Expect(s.InjectDisturbance(-1, 5)).To(MatchError(plant.ErrIndexOutOfRange))
			_, err := s.InjectRandomDisturbance(4)
			Expect(err).To(MatchError(plant.ErrIndexOutOfRange))
			_, err = s.TriggerSpill(4)
			Expect(err).To(MatchError(plant.ErrIndexOutOfRange))

			var cmdErr *plant.CommandError
			err = s.InjectDisturbance(99, 5)
			Expect(err).To(BeAssignableToTypeOf(cmdErr))
		})
	})

	Describe("SetTarget", func() {
		It("rejects a target below the configured minimum and keeps state", func() {
			s := mustNew(quietConfig())
			err := s.SetTarget(1, -5)
			Expect(err).To(MatchError(plant.ErrInvalidTarget))
			Expect(s.Snapshots()[1].Target).To(Equal(50.0))
		})

		It("rejects an unknown tank", func() {
			s := mustNew(config.DefaultConfig())
			Expect(s.SetTarget(4, 50)).To(MatchError(plant.ErrIndexOutOfRange))
		})

		It("moves the control band with the setpoint", func() {
			s := mustNew(config.DefaultConfig())
			Expect(s.SetTarget(2, 70)).To(Succeed())
			snap := s.Snapshots()[2]
			Expect(snap.Target).To(Equal(70.0))
			Expect(snap.Low).To(Equal(60.0))
			Expect(snap.High).To(Equal(80.0))
			Expect(snap.Status).To(Equal(plant.Alarm))
		})
	})

	Describe("ResetAll", func() {
		It("restores defaults and zeroes the counters", func() {
			s := mustNew(config.DefaultConfig())
			Expect(s.SetTarget(0, 30)).To(Succeed())
			Expect(s.InjectDisturbance(3, -15)).To(Succeed())
			for i := 0; i < 5; i++ {
				s.Tick(1)
			}
			Expect(s.InjectDisturbance(1, 9)).To(Succeed())

			s.ResetAll()
			once := s.Snapshots()
			s.ResetAll()
			Expect(s.Snapshots()).To(Equal(once))

			Expect(s.Ticks()).To(BeZero())
			Expect(s.Elapsed()).To(BeZero())
			for i, snap := range once {
				Expect(snap.Level).To(Equal(50.0))
				Expect(snap.Target).To(Equal(50.0))
				pending, _ := s.PendingDisturbance(i)
				Expect(pending).To(BeZero())
			}
		})
	})

	Describe("determinism", func() {
		drive := func(s *supervisor.Supervisor) [][]plant.Snapshot {
			var out [][]plant.Snapshot
			for i := 0; i < 300; i++ {
				switch {
				case i == 40:
					_ = s.SetTarget(1, 65)
				case i%17 == 0:
					_, _ = s.InjectRandomDisturbance(i % 4)
				case i == 120:
					s.SetPause(true)
				case i == 130:
					s.SetPause(false)
				case i == 200:
					_, _ = s.TriggerSpill(3)
				case i == 250:
					s.ResetAll()
				}
				out = append(out, s.Tick(1))
			}
			return out
		}

		It("replays bit-identically from the same seed", func() {
			cfg := config.DefaultConfig()
			cfg.Seed = 2024
			a := drive(mustNew(cfg))
			b := drive(mustNew(cfg))
			Expect(a).To(Equal(b))
		})

		It("diverges for a different seed", func() {
			cfg := config.DefaultConfig()
			cfg.Seed = 1
			a := drive(mustNew(cfg))
			cfg.Seed = 2
			b := drive(mustNew(cfg))
			Expect(a).NotTo(Equal(b))
		})
	})

	Describe("logging", func() {
		It("logs accepted and rejected commands", func() {
			var buf bytes.Buffer
			s := mustNew(config.DefaultConfig(), supervisor.WithLogger(log.New(&buf)))
			Expect(s.SetTarget(0, 60)).To(Succeed())
			Expect(s.SetTarget(0, 5)).NotTo(Succeed())
			Expect(buf.String()).To(ContainSubstring("target changed"))
			Expect(buf.String()).To(ContainSubstring("target rejected"))
		})
	})
})
