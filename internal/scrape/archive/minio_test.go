package archive_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/scrape/archive"
	"github.com/propertyhub/lease-planner/internal/scrape/backend"
)

var _ = Describe("minio archive", func() {
	var (
		server   *httptest.Server
		mu       sync.Mutex
		uploaded map[string][]byte
		status   int
	)

	BeforeEach(func() {
		uploaded = map[string][]byte{}
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				w.WriteHeader(http.StatusNotImplemented)
				return
			}
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			uploaded[r.URL.Path] = body
			mu.Unlock()
			w.Header().Set("ETag", `"0123456789abcdef"`)
			w.WriteHeader(status)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newArchive := func() *archive.MinioArchive {
		a, err := archive.NewMinioArchive(
			archive.WithEndpoint(strings.TrimPrefix(server.URL, "http://")),
			archive.WithBucket("lease-invoices"),
			archive.WithAccessKey("access"),
			archive.WithSecretKey("secret"),
			archive.WithRegion("us-east-1"),
		)
		Expect(err).To(BeNil())
		return a
	}

	It("uploads the snapshot under the job prefix", func() {
		a := newArchive()
		jobID := uuid.New()
		snapshot := archive.Snapshot{
			JobID:    jobID,
			Provider: scrape.ProviderEngieRomania,
			Rows:     []backend.Match{{HTML: "<tr></tr>"}},
			Records:  []scrape.InvoiceRecord{{Number: "FE-1", Amount: 100, Currency: "RON"}},
		}

		key, err := a.Put(context.TODO(), snapshot)
		Expect(err).To(BeNil())
		Expect(key).To(Equal("scrape-jobs/" + jobID.String() + "/snapshot.json"))

		mu.Lock()
		defer mu.Unlock()
		body, ok := uploaded["/lease-invoices/"+key]
		Expect(ok).To(BeTrue())
		Expect(string(body)).To(ContainSubstring(`"jobId":"` + jobID.String() + `"`))
		Expect(string(body)).To(ContainSubstring(`"number":"FE-1"`))
	})

	It("returns upload errors", func() {
		status = http.StatusForbidden
		_, err := newArchive().Put(context.TODO(), archive.Snapshot{JobID: uuid.New()})
		Expect(err).NotTo(BeNil())
	})

	It("requires an endpoint", func() {
		_, err := archive.NewMinioArchive(archive.WithBucket("b"))
		Expect(err).NotTo(BeNil())
	})
})
