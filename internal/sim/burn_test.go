package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/sim"
	"github.com/san-kum/roar/internal/sizing"
)

type thrustPeak struct{ peak float64 }

func (p *thrustPeak) Name() string        { return "peak_thrust" }
func (p *thrustPeak) Observe(s sim.State) { p.peak = math.Max(p.peak, s.Thrust) }
func (p *thrustPeak) Value() float64      { return p.peak }
func (p *thrustPeak) Reset()              { p.peak = 0 }

var _ = Describe("Burn", func() {
	var seed *sizing.Result

	BeforeEach(func() {
		var err error
		seed, err = sizing.Size(sizing.Reference())
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with the reference motor", func() {
		It("regresses the port towards the outer diameter", func() {
			res, err := sim.New(seed).Run(context.Background(), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(sim.BurnedOut))

			d := res.Series("port_diameter")
			Expect(d[0]).To(BeNumerically("~", seed.PortDiameterInitial.SI(), 1e-12))
			Expect(d[len(d)-1]).To(Equal(seed.PortDiameterFinal.SI()))
		})

		It("burns with a shifting mixture ratio as the port opens", func() {
			res, err := sim.New(seed).Run(context.Background(), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			of := res.Series("of")
			Expect(of[len(of)-1]).To(BeNumerically(">", of[0]))

			flux := res.Series("flux_ox")
			Expect(flux[len(flux)-1]).To(BeNumerically("<", flux[0]))
		})

		It("keeps oxidizer flow constant", func() {
			cfg := sim.DefaultConfig()
			cfg.Policy.MaxBurnTime = 1
			res, err := sim.New(seed).Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())
			for _, s := range res.States {
				Expect(s.MdotOx).To(Equal(seed.MdotOxidizer.SI()))
			}
		})

		It("reports metrics collected over the run", func() {
			cfg := sim.DefaultConfig()
			cfg.Policy.MaxBurnTime = 1
			s := sim.New(seed)
			s.AddMetric(&thrustPeak{})

			res, err := s.Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics).To(HaveKey("peak_thrust"))

			var peak float64
			for _, st := range res.States {
				peak = math.Max(peak, st.Thrust)
			}
			Expect(res.Metrics["peak_thrust"]).To(Equal(peak))
		})
	})

	DescribeTable("termination",
		func(policy sim.TerminationPolicy, want sim.Status) {
			cfg := sim.DefaultConfig()
			cfg.Policy = policy
			res, err := sim.New(seed, sim.WithIntegrator(integrators.NewRK4())).Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(want))
		},
		Entry("by burnout", sim.TerminationPolicy{}, sim.BurnedOut),
		Entry("by port diameter", sim.TerminationPolicy{MaxPortDiameter: 0.050}, sim.StructuralLimit),
		Entry("by web thickness", sim.TerminationPolicy{MinWebThickness: 0.003}, sim.StructuralLimit),
		Entry("by burn time", sim.TerminationPolicy{MaxBurnTime: 0.5}, sim.BurnTimeReached),
		Entry("by step budget", sim.TerminationPolicy{MaxSteps: 5}, sim.MaxStepsExceeded),
	)
})
