package resolve

// Kind labels the Asset variants.
type Kind int

const (
	KindNone Kind = iota
	KindVideo
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	default:
		return "none"
	}
}

// Asset is the result of resolving one query. The set of implementations is
// closed: VideoAsset, ImageAsset and NoAsset.
type Asset interface {
	Kind() Kind
	sealed()
}

// VideoAsset is a moving-footage candidate.
type VideoAsset struct {
	Locator string
	Source  string
	Reused  bool
}

// ImageAsset is a still image candidate.
type ImageAsset struct {
	Locator string
	Source  string
	Reused  bool
}

// NoAsset records that nothing matched Query.
type NoAsset struct {
	Query string
}

func (VideoAsset) Kind() Kind { return KindVideo }
func (ImageAsset) Kind() Kind { return KindImage }
func (NoAsset) Kind() Kind    { return KindNone }

func (VideoAsset) sealed() {}
func (ImageAsset) sealed() {}
func (NoAsset) sealed()    {}

// Locator returns the asset's locator, or "" for NoAsset.
func Locator(a Asset) string {
	switch v := a.(type) {
	case VideoAsset:
		return v.Locator
	case ImageAsset:
		return v.Locator
	default:
		return ""
	}
}

// SourceName returns the tag of the source that produced the asset.
func SourceName(a Asset) string {
	switch v := a.(type) {
	case VideoAsset:
		return v.Source
	case ImageAsset:
		return v.Source
	default:
		return ""
	}
}
