package auth_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"southerniot.dev/erp/internal/auth"
)

var _ = Describe("TokenManager", func() {
	var manager *auth.TokenManager

	BeforeEach(func() {
		var err error
		manager, err = auth.NewTokenManager([]byte("test-secret"), "southern-iot", time.Hour)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewTokenManager", func() {
		It("should return error when secret is empty", func() {
			m, err := auth.NewTokenManager(nil, "southern-iot", time.Hour)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("secret"))
			Expect(m).To(BeNil())
		})

		It("should return error when ttl is not positive", func() {
			m, err := auth.NewTokenManager([]byte("secret"), "southern-iot", 0)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("ttl"))
			Expect(m).To(BeNil())
		})
	})

	Describe("Issue and Validate", func() {
		It("should round-trip the username", func() {
			token, expiresAt, err := manager.Issue("operator")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).NotTo(BeEmpty())
			Expect(expiresAt).To(BeTemporally("~", time.Now().UTC().Add(time.Hour), 5*time.Second))

			claims, err := manager.Validate(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Username).To(Equal("operator"))
			Expect(claims.Subject).To(Equal("operator"))
			Expect(claims.Issuer).To(Equal("southern-iot"))
		})

		It("should issue unique token ids", func() {
			first, _, err := manager.Issue("operator")
			Expect(err).NotTo(HaveOccurred())
			second, _, err := manager.Issue("operator")
			Expect(err).NotTo(HaveOccurred())

			firstClaims, err := manager.Validate(first)
			Expect(err).NotTo(HaveOccurred())
			secondClaims, err := manager.Validate(second)
			Expect(err).NotTo(HaveOccurred())
			Expect(firstClaims.ID).NotTo(Equal(secondClaims.ID))
		})
	})

	Describe("Validate", func() {
		It("should reject garbage", func() {
			claims, err := manager.Validate("not-a-token")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
			Expect(claims).To(BeNil())
		})

		It("should reject a token signed with a different secret", func() {
			other, err := auth.NewTokenManager([]byte("other-secret"), "southern-iot", time.Hour)
			Expect(err).NotTo(HaveOccurred())

			token, _, err := other.Issue("operator")
			Expect(err).NotTo(HaveOccurred())

			_, err = manager.Validate(token)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("should reject an expired token", func() {
			shortLived, err := auth.NewTokenManager([]byte("test-secret"), "southern-iot", time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			token, _, err := shortLived.Issue("operator")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() error {
				_, err := manager.Validate(token)
				return err
			}).Should(MatchError(auth.ErrInvalidToken))
		})

		It("should reject a token from a different issuer", func() {
			other, err := auth.NewTokenManager([]byte("test-secret"), "someone-else", time.Hour)
			Expect(err).NotTo(HaveOccurred())

			token, _, err := other.Issue("operator")
			Expect(err).NotTo(HaveOccurred())

			_, err = manager.Validate(token)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})
})
