package source

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Local", func() {
	var (
		tmpDir string
		local  *Local
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		local = NewLocal()
	})

	writeFile := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	Describe("ReadDir", func() {
		var (
			docs []Document
			err  error
		)

		JustBeforeEach(func() {
			docs, err = local.ReadDir(tmpDir)
		})

		When("the directory has xml and other files", func() {
			BeforeEach(func() {
				writeFile("b.xml", "<b/>")
				writeFile("a.XML", "<a/>")
				writeFile("notes.txt", "ignored")
				Expect(os.Mkdir(filepath.Join(tmpDir, "sub.xml"), 0755)).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should read only xml files in name order", func() {
				Expect(docs).To(HaveLen(2))
				Expect(docs[0].FileName).To(Equal("a.XML"))
				Expect(docs[0].Content).To(Equal("<a/>"))
				Expect(docs[1].FileName).To(Equal("b.xml"))
			})
		})

		When("the directory does not exist", func() {
			BeforeEach(func() {
				tmpDir = filepath.Join(tmpDir, "missing")
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("ReadFiles", func() {
		It("should keep the given order", func() {
			second := writeFile("2.xml", "<two/>")
			first := writeFile("1.xml", "<one/>")

			docs, err := local.ReadFiles([]string{second, first})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].FileName).To(Equal("2.xml"))
			Expect(docs[1].FileName).To(Equal("1.xml"))
		})

		It("returns an error for a missing file", func() {
			_, err := local.ReadFiles([]string{filepath.Join(tmpDir, "nope.xml")})
			Expect(err).To(HaveOccurred())
		})
	})
})
