package loop_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"reactord/internal/config"
	"reactord/internal/loop"
	"reactord/internal/sim"
)

// End-to-end cycle scenarios over synthetic plants.
var _ = Describe("control cycle", func() {
	var (
		cfg   *config.Config
		clock time.Time
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		clock = time.Unix(1_700_000_000, 0)
	})

	newLoop := func(plant *sim.Plant) *loop.Loop {
		l, err := loop.New(cfg, plant, loop.Options{
			Logger: zerolog.Nop(),
			Clock:  func() time.Time { return clock },
		})
		Expect(err).NotTo(HaveOccurred())
		return l
	}

	Describe("a healthy reactor below target", func() {
		It("gets a rod adjustment and nothing else", func() {
			unit := sim.NewUnit("alpha")
			unit.Stored = 0.5 * unit.Capacity
			unit.FuelTemp = 800
			rodBefore := unit.Rod

			c, err := newLoop(sim.NewPlant(unit)).Tick()

			Expect(err).NotTo(HaveOccurred())
			Expect(c.Fatal).To(BeNil())
			Expect(unit.Running).To(BeTrue())
			Expect(unit.Rod).NotTo(Equal(rodBefore))
			Expect(unit.Rod).To(And(BeNumerically(">=", 0), BeNumerically("<=", 100)))
		})
	})

	Describe("an overheated reactor among healthy ones", func() {
		It("halts the process before later reactors are processed", func() {
			healthy := sim.NewUnit("alpha")
			healthy.Stored = 0.5 * healthy.Capacity
			healthy.FuelTemp = 800

			hot := sim.NewUnit("bravo")
			hot.FuelTemp = cfg.MaxTemperature + 100

			later := sim.NewUnit("charlie")
			laterRod := later.Rod

			_, err := newLoop(sim.NewPlant(healthy, hot, later)).Tick()

			Expect(err).To(BeAssignableToTypeOf(&loop.FatalError{}))
			Expect(err.(*loop.FatalError).Reactor).To(Equal("bravo"))

			Expect(healthy.Running).To(BeTrue(), "reactors before the overheat finish their cycle")
			Expect(hot.Running).To(BeFalse(), "the overheated reactor is shut down")
			Expect(later.Rod).To(Equal(laterRod), "reactors after the overheat are untouched")
			Expect(later.ActiveWrites).To(BeZero())
		})
	})

	Describe("an overflowing reactor", func() {
		It("pauses, holds through the hysteresis band, and resumes below it", func() {
			unit := sim.NewUnit("alpha")
			l := newLoop(sim.NewPlant(unit))

			unit.Stored = 0.96 * unit.Capacity
			_, err := l.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(unit.Running).To(BeFalse())

			for _, frac := range []float64{0.94, 0.90, 0.86} {
				unit.Stored = frac * unit.Capacity
				_, err = l.Tick()
				Expect(err).NotTo(HaveOccurred())
				Expect(unit.Running).To(BeFalse(), "fraction %v is inside the hold band", frac)
			}

			unit.Stored = 0.80 * unit.Capacity
			_, err = l.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(unit.Running).To(BeTrue())
			Expect(l.Stats().Pauses).To(Equal(uint64(1)))
			Expect(l.Stats().Resumes).To(Equal(uint64(1)))
		})
	})

	Describe("a nearly drained reactor", func() {
		It("asserts backup power only while below the threshold", func() {
			unit := sim.NewUnit("alpha")
			l := newLoop(sim.NewPlant(unit))

			unit.Stored = 0.05 * unit.Capacity
			c, err := l.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Reactors[0].Verdict.BackupAsserted).To(BeTrue())

			unit.Stored = 0.50 * unit.Capacity
			c, err = l.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Reactors[0].Verdict.BackupAsserted).To(BeFalse())
		})
	})

	Describe("a simulated plant over many cycles", func() {
		It("keeps every reactor inside safe bounds", func() {
			params := sim.DefaultModelParams()
			plant := sim.NewModelPlant(3, params, 99)

			devices, _ := plant.Devices()
			for _, d := range devices {
				d.(*sim.ModelUnit).SetClock(func() time.Time { return clock })
			}

			l := newLoop(plant)
			for i := 0; i < 500; i++ {
				clock = clock.Add(2 * time.Second)
				c, err := l.Tick()
				Expect(err).NotTo(HaveOccurred())
				for _, st := range c.Reactors {
					Expect(st.Fault).To(BeNil())
					Expect(st.Verdict.RodLevel).To(And(BeNumerically(">=", 0), BeNumerically("<=", 100)))
				}
			}
		})
	})
})
