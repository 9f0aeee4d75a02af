package archive

import (
	"testing"

	"github.com/beevik/etree"
)

func TestXMLDocumentCreateOnMiss(t *testing.T) {
	s := newTestStore(t)

	t.Run("absent without callback", func(t *testing.T) {
		doc, err := s.XMLDocument("conf/layout.xml", nil)
		if err != nil {
			t.Fatalf("XMLDocument() error = %v", err)
		}
		if doc != nil {
			t.Error("XMLDocument() on absent locator = non-nil, want nil")
		}
	})

	t.Run("create and reload", func(t *testing.T) {
		doc, err := s.XMLDocument("conf/layout.xml", func() (*etree.Document, error) {
			d := etree.NewDocument()
			root := d.CreateElement("layout")
			root.CreateAttr("version", "1")
			root.CreateElement("panel").SetText("main")
			return d, nil
		})
		if err != nil {
			t.Fatalf("XMLDocument() error = %v", err)
		}
		if doc == nil {
			t.Fatal("XMLDocument() = nil after create callback")
		}

		reloaded, err := s.XMLDocument("conf/layout.xml", nil)
		if err != nil {
			t.Fatalf("XMLDocument() reload error = %v", err)
		}
		if reloaded == nil {
			t.Fatal("XMLDocument() reload = nil, want stored document")
		}
		root := reloaded.Root()
		if root == nil || root.Tag != "layout" {
			t.Fatalf("reloaded root = %v, want <layout>", root)
		}
		if got := root.SelectAttrValue("version", ""); got != "1" {
			t.Errorf("version attr = %q, want %q", got, "1")
		}
		if got := root.SelectElement("panel").Text(); got != "main" {
			t.Errorf("panel text = %q, want %q", got, "main")
		}
	})
}

func TestSetXMLDocument(t *testing.T) {
	s := newTestStore(t)
	d := etree.NewDocument()
	d.CreateElement("empty")
	if err := s.SetXMLDocument("x.xml", d); err != nil {
		t.Fatalf("SetXMLDocument() error = %v", err)
	}
	raw, err := s.ReadBytes("x.xml")
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("SetXMLDocument() wrote empty resource")
	}
}

func TestXMLParseFailure(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteBytes("bad.xml", []byte("<unclosed>")); err != nil {
		t.Fatalf("WriteBytes() error = %v", err)
	}
	if _, err := s.XMLDocument("bad.xml", nil); err == nil {
		t.Error("XMLDocument() on malformed XML succeeded, want error")
	}
}
