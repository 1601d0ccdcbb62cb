package leodocs

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strconv"
	"strings"

	"github.com/leoforge/go-leodocs/pkg/leodocs/opc"
	docxml "github.com/leoforge/go-leodocs/pkg/leodocs/xml"
)

// ImageAsset is an image bound to an image tag.
type ImageAsset struct {
	Data []byte
	// Width and Height are in pixels. When either is zero it is read from
	// the image header, keeping the aspect ratio of the declared side.
	Width, Height int
	// MIMEType is a hint used when the content type cannot be sniffed.
	MIMEType string
	// Description becomes the drawing's alternative text.
	Description string
}

const (
	mediaDir          = "word/media/"
	octetStream       = "application/octet-stream"
	octetStreamExt    = "bin"
	defaultPictureFmt = "Picture %d"
)

var (
	mediaNamePattern = regexp.MustCompile(`^word/media/image(\d+)\.`)
	docPrIDPattern   = regexp.MustCompile(`<wp:docPr\b[^>]*?\sid="(\d+)"`)
)

// mimeExtensions maps the content types Word understands to part extensions.
var mimeExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpeg",
	"image/jpg":     "jpeg",
	"image/gif":     "gif",
	"image/bmp":     "bmp",
	"image/tiff":    "tiff",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/x-emf":   "emf",
	"image/x-wmf":   "wmf",
}

// sniffImage identifies common image formats by their leading bytes.
func sniffImage(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte("BM")) && len(data) > 14:
		return "image/bmp"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "image/tiff"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimSpace(head)
	if bytes.HasPrefix(trimmed, []byte("<svg")) ||
		(bytes.HasPrefix(trimmed, []byte("<?xml")) && bytes.Contains(trimmed, []byte("<svg"))) {
		return "image/svg+xml"
	}
	return ""
}

// imageType picks the content type and part extension of an image: sniffed
// from its bytes, else from the hint, else an opaque binary type.
func imageType(data []byte, hint string) (mimeType, ext string) {
	if sniffed := sniffImage(data); sniffed != "" {
		return sniffed, mimeExtensions[sniffed]
	}
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint, _, _ = strings.Cut(hint, ";"); hint != "" {
		if ext, ok := mimeExtensions[hint]; ok {
			if hint == "image/jpg" {
				hint = "image/jpeg"
			}
			return hint, ext
		}
	}
	return octetStream, octetStreamExt
}

// parseDataURI parses a base64 data URI and returns the MIME type and decoded data.
func parseDataURI(dataURI string) (string, []byte, error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return "", nil, errors.New("invalid data URI format")
	}
	metadata, payload, found := strings.Cut(dataURI[len("data:"):], ",")
	if !found {
		return "", nil, errors.New("invalid data URI format")
	}
	if payload == "" {
		return "", nil, errors.New("no image data")
	}
	if !strings.HasSuffix(metadata, ";base64") {
		return "", nil, errors.New("missing base64 marker")
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSuffix(metadata, ";base64"), data, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("image data is not valid base64")
}

// decodeImageString accepts a data URI or bare base64.
func decodeImageString(s string) ([]byte, string, error) {
	if strings.HasPrefix(s, "data:") {
		mimeType, data, err := parseDataURI(s)
		return data, mimeType, err
	}
	data, err := decodeBase64(s)
	return data, "", err
}

// assetFrom converts a bound value into an image. Accepted shapes are an
// asset, a base64 or data URI string, and a mapping with a data field plus
// optional width, height, mimeType and description fields.
func assetFrom(v Value) (*ImageAsset, error) {
	switch v.Kind() {
	case KindAsset:
		a := *v.asset
		return &a, nil
	case KindString:
		data, mimeType, err := decodeImageString(v.str)
		if err != nil {
			return nil, err
		}
		return &ImageAsset{Data: data, MIMEType: mimeType}, nil
	case KindMap:
		return assetFromMap(v)
	default:
		return nil, fmt.Errorf("cannot use %s value as an image", v.Kind())
	}
}

func assetFromMap(v Value) (*ImageAsset, error) {
	raw, ok := firstField(v, "data", "src", "content")
	if !ok {
		return nil, errors.New("image mapping has no data field")
	}

	a := &ImageAsset{}
	switch raw.Kind() {
	case KindAsset:
		inner := *raw.asset
		a = &inner
	case KindString:
		data, mimeType, err := decodeImageString(raw.str)
		if err != nil {
			return nil, err
		}
		a.Data, a.MIMEType = data, mimeType
	default:
		return nil, fmt.Errorf("image data must be binary or a base64 string, got %s", raw.Kind())
	}

	var err error
	if a.Width, err = dimension(v, "width", a.Width); err != nil {
		return nil, err
	}
	if a.Height, err = dimension(v, "height", a.Height); err != nil {
		return nil, err
	}
	if hint, ok := firstField(v, "mimeType", "contentType", "type"); ok && hint.Kind() == KindString {
		a.MIMEType = hint.str
	}
	if descr, ok := firstField(v, "description", "alt"); ok && descr.Kind() == KindString {
		a.Description = descr.str
	}
	return a, nil
}

func firstField(v Value, names ...string) (Value, bool) {
	for _, name := range names {
		if f, ok := v.Field(name); ok && !f.IsNull() {
			return f, true
		}
	}
	return Value{}, false
}

func dimension(v Value, name string, fallback int) (int, error) {
	f, ok := v.Field(name)
	if !ok || f.IsNull() {
		return fallback, nil
	}
	switch f.Kind() {
	case KindNumber:
		n, _ := f.Number()
		if n < 0 {
			return 0, fmt.Errorf("%s cannot be negative", name)
		}
		return int(n + 0.5), nil
	case KindString:
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(f.str), "px"))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid %s %q", name, f.str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid %s of kind %s", name, f.Kind())
	}
}

// imageSize completes missing dimensions from the image header.
func imageSize(a *ImageAsset) (int, int, error) {
	w, h := a.Width, a.Height
	if w > 0 && h > 0 {
		return w, h, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("dimensions not given and not readable from the image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, errors.New("image has zero size")
	}
	switch {
	case w > 0:
		h = w * cfg.Height / cfg.Width
	case h > 0:
		w = h * cfg.Width / cfg.Height
	default:
		w, h = cfg.Width, cfg.Height
	}
	return max(w, 1), max(h, 1), nil
}

// imageEmbedder adds image parts to one rendered package. It is created per
// render, so allocation never depends on earlier renders.
type imageEmbedder struct {
	pkg      *opc.Package
	maxBytes int64
	logger   *Logger

	contentTypes *opc.ContentTypes
	typesDirty   bool
	rels         map[string]*opc.Relationships
	relsOrder    []string
	media        map[[sha256.Size]byte]string
	nextMedia    int
	lastDocPr    int
}

func newImageEmbedder(pkg *opc.Package, lastDocPr int, maxBytes int64, logger *Logger) *imageEmbedder {
	next := 1
	for _, name := range pkg.Names() {
		if m := mediaNamePattern.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
				next = n + 1
			}
		}
	}
	return &imageEmbedder{
		pkg:       pkg,
		maxBytes:  maxBytes,
		logger:    logger,
		rels:      map[string]*opc.Relationships{},
		media:     map[[sha256.Size]byte]string{},
		nextMedia: next,
		lastDocPr: lastDocPr,
	}
}

// maxDocPrID returns the highest drawing object ID used in markup.
func maxDocPrID(markup []byte) int {
	highest := 0
	for _, m := range docPrIDPattern.FindAllSubmatch(markup, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

type partImages struct {
	e    *imageEmbedder
	part string
}

func (p partImages) Embed(name string, asset *ImageAsset) (string, error) {
	return p.e.embed(p.part, name, asset)
}

// forPart returns a sink that relates embedded images to part.
func (e *imageEmbedder) forPart(part string) ImageSink {
	return partImages{e: e, part: part}
}

func (e *imageEmbedder) embed(part, name string, asset *ImageAsset) (string, error) {
	if asset == nil || len(asset.Data) == 0 {
		return "", invalidAsset(name, errors.New("empty image data"))
	}
	if e.maxBytes > 0 && int64(len(asset.Data)) > e.maxBytes {
		return "", invalidAsset(name, fmt.Errorf("image is %d bytes, limit is %d", len(asset.Data), e.maxBytes))
	}
	width, height, err := imageSize(asset)
	if err != nil {
		return "", invalidAsset(name, err)
	}

	mimeType, ext := imageType(asset.Data, asset.MIMEType)
	mediaPart := e.mediaPart(asset.Data, ext)

	ct, err := e.types()
	if err != nil {
		return "", err
	}
	if ct.Register(mediaPart, mimeType) {
		e.typesDirty = true
	}

	rels, err := e.relationships(part)
	if err != nil {
		return "", err
	}
	relID := rels.Add(opc.ImageRelationshipType, opc.RelativeTarget(part, mediaPart))

	e.lastDocPr++
	drawing := docxml.Drawing{
		RelID:       relID,
		ID:          e.lastDocPr,
		Name:        fmt.Sprintf(defaultPictureFmt, e.lastDocPr),
		Description: asset.Description,
		Width:       width,
		Height:      height,
	}

	if e.logger.IsDebugMode() {
		e.logger.WithFields(Fields{
			"image":  name,
			"part":   part,
			"rel_id": relID,
			"media":  mediaPart,
			"type":   mimeType,
		}).Debug("Embedded image")
	}
	return drawing.Markup(), nil
}

// mediaPart stores data under word/media, reusing the part of identical content.
func (e *imageEmbedder) mediaPart(data []byte, ext string) string {
	sum := sha256.Sum256(data)
	if name, ok := e.media[sum]; ok {
		return name
	}
	name := fmt.Sprintf("%simage%d.%s", mediaDir, e.nextMedia, ext)
	for e.pkg.Has(name) {
		e.nextMedia++
		name = fmt.Sprintf("%simage%d.%s", mediaDir, e.nextMedia, ext)
	}
	e.nextMedia++
	e.pkg.SetPart(name, data)
	e.media[sum] = name
	return name
}

func (e *imageEmbedder) types() (*opc.ContentTypes, error) {
	if e.contentTypes != nil {
		return e.contentTypes, nil
	}
	data, ok := e.pkg.Part(opc.ContentTypesPart)
	if !ok {
		return nil, NewDocumentError("embed image", opc.ContentTypesPart, errors.New("part is missing"))
	}
	ct, err := opc.ParseContentTypes(data)
	if err != nil {
		return nil, NewDocumentError("embed image", opc.ContentTypesPart, err)
	}
	e.contentTypes = ct
	return ct, nil
}

func (e *imageEmbedder) relationships(part string) (*opc.Relationships, error) {
	if rels, ok := e.rels[part]; ok {
		return rels, nil
	}
	relsPart := opc.RelsPathFor(part)
	rels := opc.NewRelationships()
	if data, ok := e.pkg.Part(relsPart); ok {
		parsed, err := opc.ParseRelationships(data)
		if err != nil {
			return nil, NewDocumentError("embed image", relsPart, err)
		}
		rels = parsed
	}
	e.rels[part] = rels
	e.relsOrder = append(e.relsOrder, part)
	return rels, nil
}

// flush writes the relationship tables and content types touched by embedding.
func (e *imageEmbedder) flush() error {
	for _, part := range e.relsOrder {
		relsPart := opc.RelsPathFor(part)
		data, err := e.rels[part].Marshal()
		if err != nil {
			return NewDocumentError("write", relsPart, err)
		}
		e.pkg.SetPart(relsPart, data)
	}
	if e.typesDirty {
		data, err := e.contentTypes.Marshal()
		if err != nil {
			return NewDocumentError("write", opc.ContentTypesPart, err)
		}
		e.pkg.SetPart(opc.ContentTypesPart, data)
	}
	return nil
}
