//go:build property

package leodocs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/leoforge/go-leodocs/internal/docxtest"
	"github.com/leoforge/go-leodocs/pkg/leodocs/opc"
)

func propertyParameters() *gopter.TestParameters {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	params.MaxSize = 12
	return params
}

var wordFragments = []string{"Leos", "club", "42", " ", " & ", "<b>", `"q"`, "é", "'", "Roll Call"}

// words generates printable text that holds no tag delimiters.
func words() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(wordFragments)-1)).
		Map(func(picks []int) string {
			var b strings.Builder
			for _, i := range picks {
				b.WriteString(wordFragments[i])
			}
			return strings.TrimSpace(b.String())
		}).
		SuchThat(func(s string) bool { return s != "" })
}

func TestPropertyLoopRendersEveryItemInOrder(t *testing.T) {
	pt, err := Prepare("agenda.docx", docxtest.New(
		docxtest.Paragraph("{#agendaItems}")+docxtest.Paragraph("{item}")+docxtest.Paragraph("{/agendaItems}"),
	).Bytes(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	properties := gopter.NewProperties(propertyParameters())
	properties.Property("one paragraph per item", prop.ForAll(
		func(items []string) bool {
			list := make([]map[string]interface{}, len(items))
			for i, item := range items {
				list[i] = map[string]interface{}{"item": item}
			}
			out, err := pt.Render(TemplateData{"agendaItems": list})
			if err != nil {
				return false
			}
			got := docxtest.Paragraphs(t, out, "word/document.xml")
			if len(got) != len(items) {
				return false
			}
			for i := range items {
				if got[i] != items[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(words()),
	))
	properties.TestingRun(t)
}

func TestPropertyRenderIsDeterministic(t *testing.T) {
	pt, err := Prepare("minutes.docx", docxtest.New(
		docxtest.Paragraph("{clubName}")+docxtest.Paragraph("{#present}{.}, {/present}")+docxtest.Paragraph("{%logo}"),
	).Bytes(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	properties := gopter.NewProperties(propertyParameters())
	properties.Property("identical input gives identical bytes", prop.ForAll(
		func(club string, present []string, w, h int) bool {
			data := TemplateData{"clubName": club, "present": present, "logo": docxtest.PNG(w, h)}
			first, err := pt.Render(data)
			if err != nil {
				return false
			}
			second, err := pt.Render(data)
			return err == nil && bytes.Equal(first, second)
		},
		words(),
		gen.SliceOf(words()),
		gen.IntRange(1, 8),
		gen.IntRange(1, 8),
	))
	properties.TestingRun(t)
}

func TestPropertyImagesKeepPackageConsistent(t *testing.T) {
	pt, err := Prepare("gallery.docx", docxtest.New(
		docxtest.Paragraph("{#photos}{%.}{/photos}"),
	).Header(docxtest.Paragraph("{%logo}")).Bytes(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	properties := gopter.NewProperties(propertyParameters())
	properties.Property("every drawing resolves to a media part", prop.ForAll(
		func(sizes []int) bool {
			photos := make([]interface{}, len(sizes))
			for i, n := range sizes {
				photos[i] = docxtest.PNG(n, n)
			}
			out, err := pt.Render(TemplateData{"photos": photos, "logo": docxtest.PNG(2, 3)})
			if err != nil {
				return false
			}
			pkg, err := opc.Open(out)
			if err != nil {
				return false
			}
			if len(opc.Validate(pkg)) != 0 {
				return false
			}
			markup, _ := pkg.Part("word/document.xml")
			return bytes.Count(markup, []byte("<w:drawing>")) == len(sizes)
		},
		gen.SliceOf(gen.IntRange(1, 4)),
	))
	properties.TestingRun(t)
}

func TestPropertyUntaggedTextSurvives(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())
	properties.Property("text without tags renders unchanged", prop.ForAll(
		func(text string) bool {
			template := docxtest.New(docxtest.Paragraph(text)).Bytes()
			pt, err := Prepare("plain.docx", template, nil, nil)
			if err != nil {
				return false
			}
			out, err := pt.Render(nil)
			if err != nil {
				return false
			}
			return docxtest.ReadPart(t, out, "word/document.xml") == docxtest.ReadPart(t, template, "word/document.xml")
		},
		words(),
	))
	properties.TestingRun(t)
}
