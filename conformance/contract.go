// Package conformance holds the behavioural contract every gear.Client must
// satisfy, written once and registered against each implementation.
package conformance

import (
	"context"
	"errors"
	"net/http"

	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/clusterhq/gear"
	"github.com/clusterhq/gear/poller"
	"github.com/clusterhq/gear/unitnames"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const DefaultImage = "openshift/busybox-http-app"

// Factory returns a fresh client bound to one implementation.
type Factory func() gear.Client

// Environment describes what the test run can reach. When Available is false
// every test in the contract is skipped with Reason.
type Environment struct {
	Available bool
	Reason    string

	// Image defaults to DefaultImage.
	Image string

	// Poller defaults to poller.NewDefault().
	Poller *poller.Poller
}

func Available() Environment {
	return Environment{Available: true}
}

func Unavailable(reason string) Environment {
	return Environment{Reason: reason}
}

// ClientContract registers the contract specs for the client built by
// factory under description.
func ClientContract(description string, factory Factory, env Environment) bool {
	return Describe(description, func() {
		var (
			client gear.Client
			logger *lagertest.TestLogger
			poll   *poller.Poller
			image  string
		)

		BeforeEach(func() {
			if !env.Available {
				Skip(env.Reason)
			}

			image = env.Image
			if image == "" {
				image = DefaultImage
			}

			poll = env.Poller
			if poll == nil {
				poll = poller.NewDefault()
			}

			logger = lagertest.NewTestLogger("conformance")
			client = factory()
		})

		// removeLater removes name once the test is over, whatever its outcome.
		// A unit the test already removed is not an error.
		removeLater := func(name string) {
			DeferCleanup(func(ctx SpecContext) {
				err := client.Remove(ctx, name)
				if err != nil {
					Expect(err).To(MatchError(gear.ErrUnitNotFound))
				}
			})
		}

		addUnit := func(ctx context.Context, name string) {
			err := client.Add(ctx, name, image)
			if err == nil {
				removeLater(name)
			}
			Expect(err).NotTo(HaveOccurred())
		}

		Describe("Add", func() {
			It("makes the unit exist", func(ctx SpecContext) {
				name := unitnames.Random()
				addUnit(ctx, name)

				Expect(poll.LoopUntil(ctx, logger, poller.UnitExists(client, name))).To(Succeed())

				exists, err := client.Exists(ctx, name)
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeTrue())
			})

			It("eventually runs the unit", func(ctx SpecContext) {
				name := unitnames.Random()
				addUnit(ctx, name)

				Expect(poll.WaitForRunning(ctx, logger, client, name)).To(Succeed())
			})

			It("fails with an AddError when the name is already in use", func(ctx SpecContext) {
				name := unitnames.Random()
				addUnit(ctx, name)

				err := client.Add(ctx, name, image)
				Expect(err).To(HaveOccurred())

				var addErr *gear.AddError
				Expect(errors.As(err, &addErr)).To(BeTrue())
				Expect(addErr.Name).To(Equal(name))
				Expect(err).To(MatchError(gear.ErrUnitAlreadyExists))
			})

			It("fails with an AddError for an invalid name", func(ctx SpecContext) {
				for _, name := range []string{"", "bad name", "bad/name"} {
					err := client.Add(ctx, name, image)
					if err == nil {
						removeLater(name)
					}

					var addErr *gear.AddError
					Expect(errors.As(err, &addErr)).To(BeTrue(), "accepted name %q", name)
					Expect(addErr.StatusCode).To(Equal(http.StatusBadRequest))
					Expect(err).To(MatchError(gear.ErrInvalidName))
				}
			})

			It("fails with an AddError for an invalid image", func(ctx SpecContext) {
				name := unitnames.Random()

				err := client.Add(ctx, name, "")
				if err == nil {
					removeLater(name)
				}

				var addErr *gear.AddError
				Expect(errors.As(err, &addErr)).To(BeTrue())
				Expect(addErr.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(err).To(MatchError(gear.ErrInvalidImage))

				exists, err := client.Exists(ctx, name)
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})

			It("creates a fresh unit when the name is reused after removal", func(ctx SpecContext) {
				name := unitnames.Random()
				addUnit(ctx, name)
				Expect(client.Remove(ctx, name)).To(Succeed())

				addUnit(ctx, name)

				exists, err := client.Exists(ctx, name)
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeTrue())
			})

			It("does not interfere across concurrent adds of different names", func(ctx SpecContext) {
				names := []string{unitnames.Random(), unitnames.Random(), unitnames.Random()}

				results := make([]<-chan error, len(names))
				for i, name := range names {
					results[i] = gear.Go(func() error {
						return client.Add(ctx, name, image)
					})
				}

				errs := make([]error, len(names))
				for i, name := range names {
					errs[i] = <-results[i]
					if errs[i] == nil {
						removeLater(name)
					}
				}
				for i := range names {
					Expect(errs[i]).NotTo(HaveOccurred())
				}

				units, err := client.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				for _, name := range names {
					_, found := gear.FindUnit(units, name)
					Expect(found).To(BeTrue(), "missing unit "+name)
				}
			})
		})

		Describe("Exists", func() {
			It("returns false for a unit that was never added", func(ctx SpecContext) {
				exists, err := client.Exists(ctx, unitnames.Random())
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})
		})

		Describe("Remove", func() {
			It("fails with a RemoveError for a unit that was never added", func(ctx SpecContext) {
				name := unitnames.Random()

				err := client.Remove(ctx, name)
				Expect(err).To(HaveOccurred())

				var removeErr *gear.RemoveError
				Expect(errors.As(err, &removeErr)).To(BeTrue())
				Expect(removeErr.Name).To(Equal(name))
				Expect(err).To(MatchError(gear.ErrUnitNotFound))
			})

			It("fails with a RemoveError for a unit that was already removed", func(ctx SpecContext) {
				name := unitnames.Random()
				addUnit(ctx, name)
				Expect(client.Remove(ctx, name)).To(Succeed())
				Expect(poll.LoopUntil(ctx, logger, poller.UnitGone(client, name))).To(Succeed())

				err := client.Remove(ctx, name)
				Expect(err).To(MatchError(gear.ErrUnitNotFound))
			})

			It("makes the unit disappear", func(ctx SpecContext) {
				name := unitnames.Random()
				addUnit(ctx, name)
				Expect(client.Remove(ctx, name)).To(Succeed())

				Expect(poll.LoopUntil(ctx, logger, poller.UnitGone(client, name))).To(Succeed())

				exists, err := client.Exists(ctx, name)
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())

				units, err := client.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				_, found := gear.FindUnit(units, name)
				Expect(found).To(BeFalse())
			})
		})

		Describe("List", func() {
			It("includes every added unit with its image, eventually running", func(ctx SpecContext) {
				nameA := unitnames.Random()
				nameB := unitnames.Random()
				addUnit(ctx, nameA)
				addUnit(ctx, nameB)

				bothRunning := func(ctx context.Context) (bool, error) {
					units, err := client.List(ctx)
					if err != nil {
						return false, err
					}
					a, foundA := gear.FindUnit(units, nameA)
					b, foundB := gear.FindUnit(units, nameB)
					return foundA && foundB && a.State == gear.StateRunning && b.State == gear.StateRunning, nil
				}
				Expect(poll.LoopUntil(ctx, logger, bothRunning)).To(Succeed())

				units, err := client.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				for _, name := range []string{nameA, nameB} {
					unit, found := gear.FindUnit(units, name)
					Expect(found).To(BeTrue())
					if unit.Image != "" {
						Expect(unit.Image).To(Equal(image))
					}
					Expect(unit.SubState).To(Equal(gear.SubStateRunning))
				}
			})
		})

		It("starts, runs and removes a unit end to end", func(ctx SpecContext) {
			name := unitnames.Random()
			addUnit(ctx, name)

			Expect(poll.WaitForRunning(ctx, logger, client, name)).To(Succeed())

			units, err := client.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			unit, found := gear.FindUnit(units, name)
			Expect(found).To(BeTrue())
			Expect(unit.Running()).To(BeTrue())

			Expect(client.Remove(ctx, name)).To(Succeed())
			Expect(poll.LoopUntil(ctx, logger, poller.UnitGone(client, name))).To(Succeed())

			exists, err := client.Exists(ctx, name)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})
}
