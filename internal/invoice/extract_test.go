package invoice

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extractor", func() {
	var (
		extractor *Extractor
		content   string
		fileName  string
		out       Outcome
	)

	BeforeEach(func() {
		extractor = NewExtractor(WithIDGenerator(&fixedIDGenerator{id: "fixed"}))
		content = validInvoice()
		fileName = "factura.xml"
	})

	JustBeforeEach(func() {
		out = extractor.Extract(content, fileName)
	})

	When("the document is a complete invoice", func() {
		It("should extract a record", func() {
			Expect(out.Kind).To(Equal(Extracted))
			Expect(out.OK()).To(BeTrue())
			Expect(out.Err).NotTo(HaveOccurred())
			Expect(out.Record).NotTo(BeNil())
		})

		It("should map every field", func() {
			Expect(*out.Record).To(Equal(Record{
				ID:            "factura.xml-fixed",
				InvoiceNumber: "001-002-0000123",
				Date:          "2024-05-10",
				Amount:        "1100000.00",
				VAT10:         "100000.00",
				VAT5:          "0.00",
				VATTotal:      "100000.00",
				TaxID:         "80012345-6",
				IssuerName:    "ACME SA",
				StampNumber:   "12345678",
				ControlCode:   controlCode,
				FileName:      "factura.xml",
			}))
		})
	})

	When("the default ID generator is used", func() {
		BeforeEach(func() {
			extractor = NewExtractor()
		})

		It("should give each extraction a distinct ID", func() {
			second := extractor.Extract(content, fileName)
			Expect(out.Record.ID).To(HavePrefix("factura.xml-"))
			Expect(second.Record.ID).To(HavePrefix("factura.xml-"))
			Expect(out.Record.ID).NotTo(Equal(second.Record.ID))
		})
	})

	DescribeTable("missing a required block",
		func(blocks []string) {
			out := extractor.Extract(invoiceDoc(blocks...), "partial.xml")
			Expect(out.Kind).To(Equal(Invalid))
			Expect(out.Record).To(BeNil())
			Expect(errors.Is(out.Err, ErrNotInvoice)).To(BeTrue())
		},
		Entry("without the subtotal block", []string{stampBlock, generalBlock}),
		Entry("without the stamp block", []string{generalBlock, totalsBlock}),
		Entry("without the general operation block", []string{stampBlock, totalsBlock}),
		Entry("without any block", []string{}),
		Entry("with a self-closing stamp block", []string{"<gTimb/>", generalBlock, totalsBlock}),
		Entry("with an empty subtotal block", []string{stampBlock, generalBlock, "<gTotSub></gTotSub>"}),
		Entry("with a blank general operation block", []string{stampBlock, "<gDatGralOpe>  </gDatGralOpe>", totalsBlock}),
	)

	When("the root element is not rDE", func() {
		BeforeEach(func() {
			content = strings.ReplaceAll(validInvoice(), "rDE", "rEnviDe")
		})

		It("should report an invalid invoice", func() {
			Expect(out.Kind).To(Equal(Invalid))
			Expect(out.Err).To(MatchError(ErrNotInvoice))
		})
	})

	When("the blocks are attributes instead of elements", func() {
		BeforeEach(func() {
			content = `<rDE><DE gTimb="x" gDatGralOpe="y" gTotSub="z"/></rDE>`
		})

		It("should not treat the attributes as blocks", func() {
			Expect(out.Kind).To(Equal(Invalid))
		})
	})

	When("a leaf is only present as an attribute", func() {
		BeforeEach(func() {
			content = invoiceDoc(
				`<gTimb dNumTim="99999999"><dEst>001</dEst><dPunExp>002</dPunExp><dNumDoc>0000123</dNumDoc></gTimb>`,
				generalBlock, totalsBlock)
		})

		It("should not read the attribute as the element", func() {
			Expect(out.Record.StampNumber).To(Equal(""))
		})
	})

	When("the elements carry a namespace prefix", func() {
		BeforeEach(func() {
			content = `<s:rDE xmlns:s="http://ekuatia.set.gov.py/sifen/xsd"><s:DE Id="1">` +
				`<s:gTimb><s:dEst>001</s:dEst><s:dPunExp>001</s:dPunExp><s:dNumDoc>0000001</s:dNumDoc></s:gTimb>` +
				`<s:gDatGralOpe><s:dFeEmiDE>2024-01-02T08:00:00</s:dFeEmiDE></s:gDatGralOpe>` +
				`<s:gTotSub><s:dTotGralOpe>50</s:dTotGralOpe></s:gTotSub>` +
				`</s:DE></s:rDE>`
		})

		It("should match by local name", func() {
			Expect(out.Kind).To(Equal(Extracted))
			Expect(out.Record.InvoiceNumber).To(Equal("001-001-0000001"))
			Expect(out.Record.Amount).To(Equal("50.00"))
			Expect(out.Record.ControlCode).To(Equal("1"))
		})
	})

	When("the content is not well-formed XML", func() {
		BeforeEach(func() {
			content = `<rDE><DE><gTimb dEst=></gTimb></DE></rDE>`
		})

		It("should report a parse failure", func() {
			Expect(out.Kind).To(Equal(Malformed))
			Expect(out.Record).To(BeNil())
			var parseErr *ParseError
			Expect(errors.As(out.Err, &parseErr)).To(BeTrue())
			Expect(parseErr.FileName).To(Equal("factura.xml"))
		})
	})

	When("the document is truncated", func() {
		BeforeEach(func() {
			content = validInvoice()[:200]
		})

		It("should report a parse failure", func() {
			Expect(out.Kind).To(Equal(Malformed))
		})
	})

	When("the content is empty", func() {
		BeforeEach(func() {
			content = ""
		})

		It("should report a parse failure", func() {
			Expect(out.Kind).To(Equal(Malformed))
		})
	})

	When("the content is plain text", func() {
		BeforeEach(func() {
			content = "this is not an invoice"
		})

		It("should report a parse failure", func() {
			Expect(out.Kind).To(Equal(Malformed))
		})
	})

	When("the issue date is missing", func() {
		BeforeEach(func() {
			content = invoiceDoc(stampBlock, `<gDatGralOpe><gEmis><dRucEm>1</dRucEm></gEmis></gDatGralOpe>`, totalsBlock)
		})

		It("should report a parse failure", func() {
			Expect(out.Kind).To(Equal(Malformed))
			Expect(errors.Is(out.Err, ErrMissingDate)).To(BeTrue())
		})
	})

	When("the issue date has no time part", func() {
		BeforeEach(func() {
			content = invoiceDoc(stampBlock, `<gDatGralOpe><dFeEmiDE>2024-05-10</dFeEmiDE></gDatGralOpe>`, totalsBlock)
		})

		It("should keep the date as is", func() {
			Expect(out.Record.Date).To(Equal("2024-05-10"))
		})

		It("should leave the issuer fields empty", func() {
			Expect(out.Record.TaxID).To(BeEmpty())
			Expect(out.Record.IssuerName).To(BeEmpty())
		})
	})

	When("numeric leaves are absent", func() {
		BeforeEach(func() {
			content = invoiceDoc(stampBlock, generalBlock, totalsWith("<dSubExe>0</dSubExe>"))
		})

		It("should default them to zero", func() {
			Expect(out.Kind).To(Equal(Extracted))
			Expect(out.Record.Amount).To(Equal("0.00"))
			Expect(out.Record.VAT10).To(Equal("0.00"))
			Expect(out.Record.VAT5).To(Equal("0.00"))
			Expect(out.Record.VATTotal).To(Equal("0.00"))
		})
	})

	When("numeric leaves are empty or unparsable", func() {
		BeforeEach(func() {
			content = invoiceDoc(stampBlock, generalBlock,
				totalsWith(`<dTotGralOpe></dTotGralOpe><dIVA10>abc</dIVA10><dIVA5>NaN</dIVA5>`))
		})

		It("should never produce NaN", func() {
			Expect(out.Record.Amount).To(Equal("0.00"))
			Expect(out.Record.VAT10).To(Equal("0.00"))
			Expect(out.Record.VAT5).To(Equal("0.00"))
			Expect(out.Record.VATTotal).To(Equal("0.00"))
		})
	})

	When("the VAT subtotals have decimals", func() {
		BeforeEach(func() {
			content = invoiceDoc(stampBlock, generalBlock,
				totalsWith(`<dTotGralOpe> 1234.5 </dTotGralOpe><dIVA10>10.10</dIVA10><dIVA5>5.254</dIVA5>`))
		})

		It("should format each value with two decimals", func() {
			Expect(out.Record.Amount).To(Equal("1234.50"))
			Expect(out.Record.VAT10).To(Equal("10.10"))
			Expect(out.Record.VAT5).To(Equal("5.25"))
		})

		It("should add the parsed values before formatting", func() {
			Expect(out.Record.VATTotal).To(Equal("15.35"))
		})
	})

	When("a number component is absent", func() {
		BeforeEach(func() {
			content = invoiceDoc(`<gTimb><dPunExp>002</dPunExp><dNumDoc></dNumDoc></gTimb>`, generalBlock, totalsBlock)
		})

		It("should render the absent component as undefined and keep empty ones empty", func() {
			Expect(out.Record.InvoiceNumber).To(Equal("undefined-002-"))
		})

		When("a placeholder is configured", func() {
			BeforeEach(func() {
				extractor = NewExtractor(WithMissingPart("???"))
			})

			It("should use the placeholder", func() {
				Expect(out.Record.InvoiceNumber).To(Equal("???-002-"))
			})
		})
	})

	When("the document declares a Latin-1 encoding", func() {
		BeforeEach(func() {
			doc := strings.Replace(validInvoice(), `encoding="UTF-8"`, `encoding="ISO-8859-1"`, 1)
			doc = strings.Replace(doc, "ACME SA", "Compa\xf1\xeda SA", 1)
			content = doc
		})

		It("should decode the text to UTF-8", func() {
			Expect(out.Kind).To(Equal(Extracted))
			Expect(out.Record.IssuerName).To(Equal("Compañía SA"))
		})
	})

	When("text carries carriage returns", func() {
		BeforeEach(func() {
			content = strings.Replace(validInvoice(), "ACME SA", "ACME&#13;SA&#13;&#10;PY", 1)
		})

		It("should normalize them to line feeds", func() {
			Expect(out.Kind).To(Equal(Extracted))
			Expect(out.Record.IssuerName).To(Equal("ACME\nSA\nPY"))
		})
	})

	When("the document declares an unknown encoding", func() {
		BeforeEach(func() {
			content = strings.Replace(validInvoice(), `encoding="UTF-8"`, `encoding="x-made-up"`, 1)
		})

		It("should report a parse failure", func() {
			Expect(out.Kind).To(Equal(Malformed))
		})
	})
})

var _ = Describe("OutcomeKind", func() {
	It("should have readable names", func() {
		Expect(Extracted.String()).To(Equal("extracted"))
		Expect(Invalid.String()).To(Equal("invalid"))
		Expect(Malformed.String()).To(Equal("malformed"))
		Expect(OutcomeKind(9).String()).To(Equal("OutcomeKind(9)"))
	})
})
