package invoice

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = filepath.Join(GinkgoT().TempDir(), "exports")
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the output directory", func() {
		Expect(tmpDir).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			filename  string
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "facturas.csv"
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, []byte("Fecha\r\n"))
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the full path", func() {
				Expect(savedPath).To(Equal(filepath.Join(tmpDir, "facturas.csv")))
			})

			It("should write the content", func() {
				data, readErr := os.ReadFile(savedPath)
				Expect(readErr).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("Fecha\r\n"))
			})
		})

		When("the name contains directories", func() {
			BeforeEach(func() {
				filename = "../escape/facturas.xlsx"
			})

			It("should keep the file inside the output directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedPath).To(Equal(filepath.Join(tmpDir, "facturas.xlsx")))
			})
		})
	})
})
