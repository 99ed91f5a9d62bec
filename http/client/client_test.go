package client_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/clusterhq/gear"
	"github.com/clusterhq/gear/http/client"
	"github.com/clusterhq/gear/poller"
	"github.com/onsi/gomega/ghttp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		fakeSupervisor *ghttp.Server
		gearClient     gear.Client
		ctx            context.Context
	)

	emptyList := `{"Containers": []}`

	BeforeEach(func() {
		fakeSupervisor = ghttp.NewServer()
		host, port := hostAndPort(fakeSupervisor.Addr())
		gearClient = client.New(logger, host, port)
		ctx = context.Background()
	})

	AfterEach(func() {
		fakeSupervisor.Close()
	})

	Describe("Add", func() {
		Context("when the name or image is invalid", func() {
			It("returns an AddError without contacting the supervisor", func() {
				err := gearClient.Add(ctx, "", "busybox")
				Expect(err).To(Equal(&gear.AddError{
					Name:       "",
					StatusCode: http.StatusBadRequest,
					Body:       gear.ErrInvalidName.Error(),
				}))

				Expect(gearClient.Add(ctx, "bad name", "busybox")).To(MatchError(gear.ErrInvalidName))
				Expect(gearClient.Add(ctx, "unit-a", "")).To(MatchError(gear.ErrInvalidImage))

				Expect(fakeSupervisor.ReceivedRequests()).To(BeEmpty())
			})
		})

		Context("when the unit does not exist yet", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("GET", "/containers"),
						ghttp.RespondWith(http.StatusOK, emptyList),
					),
				)
			})

			Context("and the supervisor accepts the unit", func() {
				BeforeEach(func() {
					fakeSupervisor.AppendHandlers(
						ghttp.CombineHandlers(
							ghttp.VerifyRequest("PUT", "/container/unit-a"),
							ghttp.VerifyJSON(`{"Image": "busybox", "Started": true}`),
							ghttp.RespondWith(http.StatusCreated, ""),
						),
					)
				})

				It("succeeds", func() {
					Expect(gearClient.Add(ctx, "unit-a", "busybox")).To(Succeed())
					Expect(fakeSupervisor.ReceivedRequests()).To(HaveLen(2))
				})
			})

			Context("and the supervisor rejects the unit", func() {
				BeforeEach(func() {
					fakeSupervisor.AppendHandlers(
						ghttp.CombineHandlers(
							ghttp.VerifyRequest("PUT", "/container/unit-a"),
							ghttp.RespondWith(http.StatusBadRequest, "bad image reference"),
						),
					)
				})

				It("returns an AddError carrying the status and body", func() {
					err := gearClient.Add(ctx, "unit-a", "Not An Image")
					Expect(err).To(Equal(&gear.AddError{
						Name:       "unit-a",
						StatusCode: http.StatusBadRequest,
						Body:       "bad image reference",
					}))
				})
			})
		})

		Context("when the unit already exists", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("GET", "/containers"),
						ghttp.RespondWith(http.StatusOK, `{"Containers": [{"Id": "unit-a", "SubState": "running"}]}`),
					),
				)
			})

			It("returns an AddError without issuing the creation request", func() {
				err := gearClient.Add(ctx, "unit-a", "busybox")
				Expect(err).To(MatchError(gear.ErrUnitAlreadyExists))
				Expect(fakeSupervisor.ReceivedRequests()).To(HaveLen(1))
			})
		})

		Context("when the existence check fails", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				)
			})

			It("returns the ExistsError", func() {
				err := gearClient.Add(ctx, "unit-a", "busybox")

				var existsErr *gear.ExistsError
				Expect(errors.As(err, &existsErr)).To(BeTrue())
				Expect(existsErr.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("Exists", func() {
		Context("when the supervisor lists the unit", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.RespondWith(http.StatusOK, `{"Containers": [{"Id": "unit-a", "SubState": "start-pre"}]}`),
				)
			})

			It("returns true regardless of the sub-state", func() {
				Expect(gearClient.Exists(ctx, "unit-a")).To(BeTrue())
			})
		})

		Context("when the supervisor does not list the unit", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.RespondWith(http.StatusOK, `{"Containers": [{"Id": "unit-b", "SubState": "running"}]}`),
				)
			})

			It("returns false", func() {
				Expect(gearClient.Exists(ctx, "unit-a")).To(BeFalse())
			})
		})

		Context("when the response code is unexpected", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.RespondWith(http.StatusServiceUnavailable, "try later"),
				)
			})

			It("returns an ExistsError carrying the status and body", func() {
				_, err := gearClient.Exists(ctx, "unit-a")
				Expect(err).To(Equal(&gear.ExistsError{
					Name:       "unit-a",
					StatusCode: http.StatusServiceUnavailable,
					Body:       "try later",
				}))
			})
		})
	})

	Describe("Remove", func() {
		Context("when the supervisor removes the unit", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("DELETE", "/container/unit-a"),
						ghttp.RespondWith(http.StatusNoContent, ""),
					),
				)
			})

			It("succeeds", func() {
				Expect(gearClient.Remove(ctx, "unit-a")).To(Succeed())
			})
		})

		Context("when the response code is unexpected", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("DELETE", "/container/unit-a"),
						ghttp.RespondWith(http.StatusNotFound, "no such unit"),
					),
				)
			})

			It("returns a RemoveError carrying the status and body", func() {
				err := gearClient.Remove(ctx, "unit-a")
				Expect(err).To(Equal(&gear.RemoveError{
					Name:       "unit-a",
					StatusCode: http.StatusNotFound,
					Body:       "no such unit",
				}))
				Expect(err).To(MatchError(gear.ErrUnitNotFound))
			})
		})
	})

	Describe("List", func() {
		Context("when the call succeeds", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("GET", "/containers"),
						ghttp.RespondWith(http.StatusOK, `{
							"Containers": [
								{"Id": "unit-a", "Image": "busybox", "ActiveState": "active", "SubState": "running"},
								{"Id": "unit-b", "ActiveState": "activating", "SubState": "start-pre"},
								{"Id": "unit-c", "ActiveState": "failed", "SubState": "failed"}
							]
						}`),
					),
				)
			})

			It("maps every container to a unit", func() {
				units, err := gearClient.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(units).To(Equal([]gear.Unit{
					{Name: "unit-a", Image: "busybox", State: gear.StateRunning, SubState: "running"},
					{Name: "unit-b", State: gear.StateAdded, SubState: "start-pre"},
					{Name: "unit-c", State: gear.StateRemoved, SubState: "failed"},
				}))
			})
		})

		Context("when the response code is unexpected", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				)
			})

			It("returns a ListError", func() {
				_, err := gearClient.List(ctx)
				Expect(err).To(Equal(&gear.ListError{StatusCode: http.StatusInternalServerError, Body: "boom"}))
			})
		})

		Context("when the body cannot be decoded", func() {
			BeforeEach(func() {
				fakeSupervisor.AppendHandlers(
					ghttp.RespondWith(http.StatusOK, "{not json"),
				)
			})

			It("returns a ProtocolError", func() {
				_, err := gearClient.List(ctx)

				var protocolErr *gear.ProtocolError
				Expect(errors.As(err, &protocolErr)).To(BeTrue())
				Expect(protocolErr.Op).To(Equal("list"))
			})
		})
	})

	Context("when the supervisor accepts connections but never answers", func() {
		var (
			host string
			port int
		)

		BeforeEach(func() {
			release := make(chan struct{})
			hung := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			DeferCleanup(hung.Close)
			DeferCleanup(func() { close(release) })

			host, port = hostAndPort(hung.Listener.Addr().String())
		})

		It("gives up once the request timeout elapses", func() {
			gearClient = client.NewWithHTTPClient(logger, &http.Client{Timeout: 100 * time.Millisecond}, host, port)

			result := gear.Go(func() error {
				_, err := gearClient.List(ctx)
				return err
			})

			var err error
			Eventually(result, 2*time.Second).Should(Receive(&err))
			Expect(err).To(HaveOccurred())

			var listErr *gear.ListError
			Expect(errors.As(err, &listErr)).To(BeFalse())
		})

		It("lets a bounded wait for readiness time out", func() {
			gearClient = client.NewWithHTTPClient(logger, &http.Client{}, host, port)
			bounded := poller.New(clock.NewClock(), 10*time.Millisecond, 200*time.Millisecond)

			result := gear.Go(func() error {
				return bounded.WaitForRunning(ctx, logger, gearClient, "unit-a")
			})

			var err error
			Eventually(result, 2*time.Second).Should(Receive(&err))

			var timeoutErr *poller.TimeoutError
			Expect(errors.As(err, &timeoutErr)).To(BeTrue())
		})
	})

	Context("when successive requests succeed", func() {
		var connections int32

		BeforeEach(func() {
			connections = 0

			supervisor := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("removed"))
			}))
			supervisor.Config.ConnState = func(_ net.Conn, state http.ConnState) {
				if state == http.StateNew {
					atomic.AddInt32(&connections, 1)
				}
			}
			supervisor.Start()
			DeferCleanup(supervisor.Close)

			host, port := hostAndPort(supervisor.Listener.Addr().String())
			gearClient = client.New(logger, host, port)
		})

		It("reuses the connection", func() {
			Expect(gearClient.Remove(ctx, "unit-a")).To(Succeed())
			Expect(gearClient.Remove(ctx, "unit-b")).To(Succeed())
			Expect(gearClient.Remove(ctx, "unit-c")).To(Succeed())

			Expect(atomic.LoadInt32(&connections)).To(BeEquivalentTo(1))
		})
	})

	Context("when the supervisor is unreachable", func() {
		BeforeEach(func() {
			fakeSupervisor.Close()
		})

		It("returns a transport error rather than a response error", func() {
			err := gearClient.Remove(ctx, "unit-a")
			Expect(err).To(HaveOccurred())

			var removeErr *gear.RemoveError
			Expect(errors.As(err, &removeErr)).To(BeFalse())
		})
	})

	Context("when the context is cancelled", func() {
		It("abandons the request", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := gearClient.List(cancelled)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
