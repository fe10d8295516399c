package views

import (
	"encoding/json"
	"fmt"
)

// schema: app.bsky.embed.* view unions (subset the core reads)

type PostView_Embed struct {
	EmbedImages_View   *EmbedImages_View
	EmbedExternal_View *EmbedExternal_View
	EmbedRecord_View   *EmbedRecord_View
}

func (t *PostView_Embed) MarshalJSON() ([]byte, error) {
	if t.EmbedImages_View != nil {
		t.EmbedImages_View.LexiconTypeID = "app.bsky.embed.images#view"
		return json.Marshal(t.EmbedImages_View)
	}
	if t.EmbedExternal_View != nil {
		t.EmbedExternal_View.LexiconTypeID = "app.bsky.embed.external#view"
		return json.Marshal(t.EmbedExternal_View)
	}
	if t.EmbedRecord_View != nil {
		t.EmbedRecord_View.LexiconTypeID = "app.bsky.embed.record#view"
		return json.Marshal(t.EmbedRecord_View)
	}
	return nil, fmt.Errorf("cannot marshal empty enum")
}

func (t *PostView_Embed) UnmarshalJSON(b []byte) error {
	typ, err := typeExtract(b)
	if err != nil {
		return err
	}
	switch typ {
	case "app.bsky.embed.images#view":
		t.EmbedImages_View = new(EmbedImages_View)
		return json.Unmarshal(b, t.EmbedImages_View)
	case "app.bsky.embed.external#view":
		t.EmbedExternal_View = new(EmbedExternal_View)
		return json.Unmarshal(b, t.EmbedExternal_View)
	case "app.bsky.embed.record#view":
		t.EmbedRecord_View = new(EmbedRecord_View)
		return json.Unmarshal(b, t.EmbedRecord_View)
	default:
		return nil
	}
}

type EmbedImages_View struct {
	LexiconTypeID string               `json:"$type,omitempty"`
	Images        []*EmbedImages_Image `json:"images"`
}

type EmbedImages_Image struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt"`
}

type EmbedExternal_View struct {
	LexiconTypeID string                  `json:"$type,omitempty"`
	External      *EmbedExternal_External `json:"external"`
}

type EmbedExternal_External struct {
	Uri         string  `json:"uri"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Thumb       *string `json:"thumb,omitempty"`
}

type EmbedRecord_View struct {
	LexiconTypeID string                   `json:"$type,omitempty"`
	Record        *EmbedRecord_View_Record `json:"record"`
}

// EmbedRecord_View_Record is the quoted-record union. ViewDetached is what a
// locally-applied shadow swaps in when the quoted author detaches their post
// from the quote.
type EmbedRecord_View_Record struct {
	ViewRecord   *EmbedRecord_ViewRecord
	NotFoundPost *NotFoundPost
	BlockedPost  *BlockedPost
	ViewDetached *EmbedRecord_ViewDetached
}

func (t *EmbedRecord_View_Record) MarshalJSON() ([]byte, error) {
	if t.ViewRecord != nil {
		t.ViewRecord.LexiconTypeID = "app.bsky.embed.record#viewRecord"
		return json.Marshal(t.ViewRecord)
	}
	if t.NotFoundPost != nil {
		t.NotFoundPost.LexiconTypeID = "app.bsky.feed.defs#notFoundPost"
		return json.Marshal(t.NotFoundPost)
	}
	if t.BlockedPost != nil {
		t.BlockedPost.LexiconTypeID = "app.bsky.feed.defs#blockedPost"
		return json.Marshal(t.BlockedPost)
	}
	if t.ViewDetached != nil {
		t.ViewDetached.LexiconTypeID = "app.bsky.embed.record#viewDetached"
		return json.Marshal(t.ViewDetached)
	}
	return nil, fmt.Errorf("cannot marshal empty enum")
}

func (t *EmbedRecord_View_Record) UnmarshalJSON(b []byte) error {
	typ, err := typeExtract(b)
	if err != nil {
		return err
	}
	switch typ {
	case "app.bsky.embed.record#viewRecord":
		t.ViewRecord = new(EmbedRecord_ViewRecord)
		return json.Unmarshal(b, t.ViewRecord)
	case "app.bsky.feed.defs#notFoundPost":
		t.NotFoundPost = new(NotFoundPost)
		return json.Unmarshal(b, t.NotFoundPost)
	case "app.bsky.feed.defs#blockedPost":
		t.BlockedPost = new(BlockedPost)
		return json.Unmarshal(b, t.BlockedPost)
	case "app.bsky.embed.record#viewDetached":
		t.ViewDetached = new(EmbedRecord_ViewDetached)
		return json.Unmarshal(b, t.ViewDetached)
	default:
		return nil
	}
}

type EmbedRecord_ViewRecord struct {
	LexiconTypeID string            `json:"$type,omitempty"`
	Uri           string            `json:"uri"`
	Cid           string            `json:"cid"`
	Author        *ProfileViewBasic `json:"author"`
	Value         *FeedPost         `json:"value"`
	IndexedAt     string            `json:"indexedAt"`
	Labels        []*Label          `json:"labels,omitempty"`
}

type EmbedRecord_ViewDetached struct {
	LexiconTypeID string `json:"$type,omitempty"`
	Uri           string `json:"uri"`
	Detached      bool   `json:"detached"`
}

// SameVariant reports whether two embed unions hold the same populated arm.
// Used by the shadow merge to refuse a type-incompatible embed override.
func (t *PostView_Embed) SameVariant(o *PostView_Embed) bool {
	if t == nil || o == nil {
		return t == o
	}
	switch {
	case t.EmbedImages_View != nil:
		return o.EmbedImages_View != nil
	case t.EmbedExternal_View != nil:
		return o.EmbedExternal_View != nil
	case t.EmbedRecord_View != nil:
		return o.EmbedRecord_View != nil
	}
	return false
}
