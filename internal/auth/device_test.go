package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"southerniot.dev/erp/internal/auth"
)

var _ = Describe("DeviceAuthorizer", func() {
	Context("with a configured token", func() {
		var authorizer *auth.DeviceAuthorizer

		BeforeEach(func() {
			authorizer = auth.NewDeviceAuthorizer("device-secret")
		})

		It("should accept the exact token", func() {
			Expect(authorizer.Authorize("device-secret")).To(BeTrue())
		})

		It("should reject a different token", func() {
			Expect(authorizer.Authorize("other")).To(BeFalse())
		})

		It("should reject an empty token", func() {
			Expect(authorizer.Authorize("")).To(BeFalse())
		})
	})

	Context("with no configured token", func() {
		It("should reject everything", func() {
			authorizer := auth.NewDeviceAuthorizer("")
			Expect(authorizer.Authorize("")).To(BeFalse())
			Expect(authorizer.Authorize("anything")).To(BeFalse())
		})
	})
})
