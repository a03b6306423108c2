package resolver

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/perdasilva/depres/pkg/universe"
)

var _ = Describe("Resolver", func() {
	var (
		u        *universe.Universe
		logs     *observer.ObservedLogs
		resolver *Resolver
	)

	BeforeEach(func() {
		u = testUniverse(
			pkg("app-editors/vim", "8.2", "dev-libs/libfoo || ( app-misc/ctags dev-util/ctags ) acl? ( sys-apps/acl )"),
			pkg("app-editors/vim", "9.0", "dev-libs/libfoo >=dev-libs/libbar-2 || ( app-misc/ctags dev-util/ctags )"),
			pkg("dev-libs/libfoo", "1.0", ""),
			pkg("dev-libs/libfoo", "2.0_beta1", ""),
			pkg("dev-libs/libbar", "1", ""),
			pkg("dev-libs/libbar", "2", "dev-libs/libfoo"),
			pkg("dev-util/ctags", "5.8", ""),
			pkg("sys-apps/acl", "2.3", ""),
		)
		core, observed := observer.New(zap.DebugLevel)
		logs = observed
		resolver = New(u, WithLogger(zap.New(core)), WithPlanCheck(true))
	})

	Context("with a satisfiable target", func() {
		It("orders dependencies before dependers", func() {
			res, err := resolver.Resolve(context.Background(), "app-editors/vim")
			Expect(err).NotTo(HaveOccurred())

			var ids []string
			for _, c := range res.Plan() {
				ids = append(ids, c.ID())
			}
			Expect(ids).To(Equal([]string{
				"dev-libs/libfoo-2.0_beta1:0::gentoo",
				"dev-libs/libbar-2:0::gentoo",
				"dev-util/ctags-5.8:0::gentoo",
				"app-editors/vim-9.0:0::gentoo",
			}))
		})

		It("tags every log line with the run id", func() {
			res, err := resolver.Resolve(context.Background(), "app-editors/vim")
			Expect(err).NotTo(HaveOccurred())

			entries := logs.FilterField(zap.String("run", res.RunID.String())).All()
			Expect(entries).NotTo(BeEmpty())
			Expect(entries).To(HaveLen(logs.Len()))
		})

		It("keeps what is already installed", func() {
			first, err := resolver.Resolve(context.Background(), "app-editors/vim")
			Expect(err).NotTo(HaveOccurred())
			for _, c := range first.Plan() {
				u.SetInstalled(c)
			}

			second, err := resolver.Resolve(context.Background(), "app-editors/vim")
			Expect(err).NotTo(HaveOccurred())
			for _, e := range second.Decisions {
				Expect(e.Decision.Kind).To(Equal(Keep))
			}
			Expect(second.Plan()).To(Equal(first.Plan()))
		})
	})

	Context("with an older target", func() {
		It("follows the older candidate's conditionals", func() {
			u.Get("app-editors/vim-8.2:0::gentoo").Flags = map[string]bool{"acl": true}

			res, err := resolver.Resolve(context.Background(), "<app-editors/vim-9")
			Expect(err).NotTo(HaveOccurred())

			decision, ok := res.Lookup(Key{Name: "sys-apps/acl", Slot: "0"})
			Expect(ok).To(BeTrue())
			Expect(decision.Kind).To(Equal(Use))

			acl := findResolution(res, "sys-apps/acl")
			Expect(acl.Constraints).To(HaveLen(1))
			Expect(acl.Constraints[0].ViaConditional).To(BeTrue())
		})
	})

	Context("with an unsatisfiable target", func() {
		It("returns the result together with the failures", func() {
			res, err := resolver.Resolve(context.Background(), "app-editors/vim >=dev-libs/libbar-3")
			Expect(res).NotTo(BeNil())

			var unsat *UnsatisfiableError
			Expect(errors.As(err, &unsat)).To(BeTrue())
			Expect(unsat.Errors).To(HaveLen(1))
			Expect(unsat.Errors[0].Key).To(Equal(Key{Name: "dev-libs/libbar"}))
			Expect(unsat.Errors[0].Explain()).To(ContainSubstring("required by the targets"))

			decision, ok := res.Lookup(Key{Name: "app-editors/vim", Slot: "0"})
			Expect(ok).To(BeTrue())
			Expect(decision.Kind).To(Equal(Use))
		})
	})
})
