package component_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/julienschmidt/httprouter"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/component"
)

var _ = Describe("BOSHIOStemcellIndex", func() {
	var (
		server       *httptest.Server
		index        *component.BOSHIOStemcellIndex
		requestedFor string
		responseBody string
		status       int
	)

	BeforeEach(func() {
		status = http.StatusOK
		responseBody = `[{"name":"bosh-vsphere-esxi-ubuntu-jammy-go_agent","version":"1.99"},{"name":"bosh-vsphere-esxi-ubuntu-jammy-go_agent","version":"1.406"},{"version":"1.100.2"}]`
		router := httprouter.New()
		router.GET("/api/v1/stemcells/:name", func(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
			requestedFor = params.ByName("name")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(responseBody))
		})
		server = httptest.NewServer(router)
		index = component.NewBOSHIOStemcellIndex(server.URL, nil)
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns the greatest version", func() {
		version, err := index.LatestStemcellVersion(context.Background(), "ubuntu-jammy")
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal("1.406"))
		Expect(requestedFor).To(Equal("bosh-vsphere-esxi-ubuntu-jammy-go_agent"))
	})

	When("the index has no stemcells", func() {
		BeforeEach(func() {
			responseBody = `[]`
		})

		It("returns an error", func() {
			_, err := index.LatestStemcellVersion(context.Background(), "ubuntu-jammy")
			Expect(err).To(MatchError(ContainSubstring("no stemcells found")))
		})
	})

	When("bosh.io fails", func() {
		BeforeEach(func() {
			status = http.StatusInternalServerError
		})

		It("returns the status", func() {
			_, err := index.LatestStemcellVersion(context.Background(), "ubuntu-jammy")
			Expect(err).To(MatchError(ContainSubstring("got status 500")))
		})
	})
})
