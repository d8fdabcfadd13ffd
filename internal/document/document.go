// Package document implements the Document entity (spec.md §3) and its
// binary encoding for the documents column family.
package document

import (
	"mboxsearch/internal/codec"
	"mboxsearch/internal/ids"
)

const version uint8 = 1

// Content holds a document's rendered title/body and link/image lists.
type Content struct {
	Title  string
	Body   string
	Links  []string
	Images []string
}

// Document is one immutable indexed entity. Once written there is no
// update or delete path (spec.md §3).
type Document struct {
	Mailbox    string
	ExternalID string
	IndexedID  ids.ID
	Author     string
	Content    Content
	// Index mirrors the tokenized attributes the writer indexed this
	// document under: attribute name -> token names (positions are not
	// retained here; phrase rechecks re-tokenize Content directly).
	Index map[string][]string
}

// Encode serializes the document to its versioned binary form.
func (d Document) Encode() []byte {
	w := codec.NewWriter(version)
	w.PutString(d.Mailbox)
	w.PutString(d.ExternalID)
	w.PutBytes(d.IndexedID.Encode())
	w.PutString(d.Author)
	w.PutString(d.Content.Title)
	w.PutString(d.Content.Body)
	w.PutUint32(uint32(len(d.Content.Links)))
	for _, l := range d.Content.Links {
		w.PutString(l)
	}
	w.PutUint32(uint32(len(d.Content.Images)))
	for _, img := range d.Content.Images {
		w.PutString(img)
	}
	w.PutUint32(uint32(len(d.Index)))
	for attr, names := range d.Index {
		w.PutString(attr)
		w.PutUint32(uint32(len(names)))
		for _, n := range names {
			w.PutString(n)
		}
	}
	return w.Bytes()
}

// Decode parses the versioned binary form produced by Encode.
func Decode(key, data []byte) (Document, error) {
	r, err := codec.NewReader(key, data)
	if err != nil {
		return Document{}, err
	}
	var d Document
	if d.Mailbox, err = r.GetString(); err != nil {
		return Document{}, err
	}
	if d.ExternalID, err = r.GetString(); err != nil {
		return Document{}, err
	}
	idRaw, err := r.GetBytes()
	if err != nil {
		return Document{}, err
	}
	if d.IndexedID, err = ids.Decode(idRaw); err != nil {
		return Document{}, err
	}
	if d.Author, err = r.GetString(); err != nil {
		return Document{}, err
	}
	if d.Content.Title, err = r.GetString(); err != nil {
		return Document{}, err
	}
	if d.Content.Body, err = r.GetString(); err != nil {
		return Document{}, err
	}
	nLinks, err := r.GetUint32()
	if err != nil {
		return Document{}, err
	}
	d.Content.Links = make([]string, 0, nLinks)
	for i := uint32(0); i < nLinks; i++ {
		l, err := r.GetString()
		if err != nil {
			return Document{}, err
		}
		d.Content.Links = append(d.Content.Links, l)
	}
	nImages, err := r.GetUint32()
	if err != nil {
		return Document{}, err
	}
	d.Content.Images = make([]string, 0, nImages)
	for i := uint32(0); i < nImages; i++ {
		img, err := r.GetString()
		if err != nil {
			return Document{}, err
		}
		d.Content.Images = append(d.Content.Images, img)
	}
	nAttrs, err := r.GetUint32()
	if err != nil {
		return Document{}, err
	}
	d.Index = make(map[string][]string, nAttrs)
	for i := uint32(0); i < nAttrs; i++ {
		attr, err := r.GetString()
		if err != nil {
			return Document{}, err
		}
		nNames, err := r.GetUint32()
		if err != nil {
			return Document{}, err
		}
		names := make([]string, 0, nNames)
		for j := uint32(0); j < nNames; j++ {
			n, err := r.GetString()
			if err != nil {
				return Document{}, err
			}
			names = append(names, n)
		}
		d.Index[attr] = names
	}
	return d, nil
}
