package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"southerniot.dev/erp/internal/auth"
)

var _ = Describe("Hasher", func() {
	var hasher *auth.Hasher

	BeforeEach(func() {
		// MinCost keeps the suite fast; production uses the bcrypt default.
		hasher = auth.NewHasher(bcrypt.MinCost)
	})

	Describe("NewHasher", func() {
		It("should fall back to the default cost for zero", func() {
			Expect(auth.NewHasher(0).Cost).To(Equal(bcrypt.DefaultCost))
		})

		It("should clamp oversized costs", func() {
			Expect(auth.NewHasher(1000).Cost).To(Equal(bcrypt.MaxCost))
		})
	})

	Describe("Hash and Compare", func() {
		It("should verify the original password", func() {
			hash, err := hasher.Hash("s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).NotTo(Equal("s3cret"))

			Expect(hasher.Compare(hash, "s3cret")).To(Succeed())
		})

		It("should reject a wrong password", func() {
			hash, err := hasher.Hash("s3cret")
			Expect(err).NotTo(HaveOccurred())

			Expect(hasher.Compare(hash, "wrong")).NotTo(Succeed())
		})

		It("should produce distinct hashes for the same password", func() {
			first, err := hasher.Hash("s3cret")
			Expect(err).NotTo(HaveOccurred())
			second, err := hasher.Hash("s3cret")
			Expect(err).NotTo(HaveOccurred())

			Expect(first).NotTo(Equal(second))
		})
	})
})
