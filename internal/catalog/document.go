package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the persisted catalog:
//
//	{"catalog": {name: Product, ...}, "images": {name: url}}
//
// The catalog object is written and read in browse order.
type Document struct {
	Catalog []Product
	Images  map[string]string
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"catalog":{`)
	for i, p := range d.Catalog {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString(`},"images":`)
	images := d.Images
	if images == nil {
		images = map[string]string{}
	}
	v, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	buf.Write(v)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	*d = Document{}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return err
		}
		switch key {
		case "catalog":
			if err := d.decodeCatalog(dec); err != nil {
				return err
			}
		case "images":
			if err := dec.Decode(&d.Images); err != nil {
				return fmt.Errorf("images: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
		}
	}
	return expectDelim(dec, '}')
}

func (d *Document) decodeCatalog(dec *json.Decoder) error {
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		var p Product
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("catalog %q: %w", name, err)
		}
		// the key is the identity; the embedded name may be stale
		p.Name = name
		d.Catalog = append(d.Catalog, p)
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}
