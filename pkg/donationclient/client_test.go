package donationclient_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/donation-service/pkg/donationclient"
)

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		polls  atomic.Int32
	)

	BeforeEach(func() {
		polls.Store(0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := polls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/v1/donations/DON-1/status":
				if n < 3 {
					fmt.Fprint(w, `{"merchantOrderId":"DON-1","status":"PENDING","outcome":"pending"}`)
					return
				}
				fmt.Fprint(w, `{"merchantOrderId":"DON-1","status":"SUCCESS","outcome":"success"}`)
			case "/api/v1/donations/DON-PENDING/status":
				fmt.Fprint(w, `{"merchantOrderId":"DON-PENDING","status":"PENDING","outcome":"pending"}`)
			case "/api/v1/donations/DON-ERR/status":
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error":"Internal server error"}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"donation not found"}`)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	client := func() *donationclient.Client {
		return donationclient.New(server.URL+"/api/v1/", donationclient.WithPollInterval(5*time.Millisecond))
	}

	It("should fetch a single status", func() {
		status, err := client().GetStatus(context.Background(), "DON-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Status).To(Equal("PENDING"))
		Expect(status.Final()).To(BeFalse())
	})

	It("should map 404 to ErrNotFound", func() {
		_, err := client().GetStatus(context.Background(), "DON-404")
		Expect(err).To(MatchError(donationclient.ErrNotFound))
	})

	It("should surface other error statuses", func() {
		_, err := client().GetStatus(context.Background(), "DON-ERR")
		Expect(err).To(MatchError(ContainSubstring("unexpected status 500")))
	})

	It("should poll until the donation is final", func() {
		var seen []string
		status, err := client().WaitForStatus(context.Background(), "DON-1", func(s *donationclient.Status) {
			seen = append(seen, s.Status)
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(status.Outcome).To(Equal("success"))
		Expect(seen).To(Equal([]string{"PENDING", "PENDING", "SUCCESS"}))
	})

	It("should stop when the context ends", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		status, err := client().WaitForStatus(ctx, "DON-PENDING", nil)
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(status.Status).To(Equal("PENDING"))
	})
})
