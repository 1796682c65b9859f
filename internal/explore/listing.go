package explore

import (
	"fmt"
	"strings"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/classify"
)

// ListingKind tags a Listing.
type ListingKind int

const (
	ListingEmpty ListingKind = iota
	ListingStructured
	ListingFreeText
)

// Listing is a listing payload reduced to the two shapes the service
// produces: a JSON sequence or newline-separated text.
type Listing struct {
	Kind  ListingKind
	Items []any
	Text  string
}

// ObjectRef names an object or predefined item found in a listing.
type ObjectRef struct {
	Name string
}

// ListingOf derives a Listing from a classified payload. A sequence may
// appear at the top level or under the "result" member.
func ListingOf(p classify.Payload) Listing {
	if p.Kind == classify.PayloadList {
		return Listing{Kind: ListingStructured, Items: p.List}
	}
	result, ok := p.Result()
	if !ok {
		return Listing{Kind: ListingEmpty}
	}
	switch v := result.(type) {
	case string:
		return Listing{Kind: ListingFreeText, Text: v}
	case []any:
		return Listing{Kind: ListingStructured, Items: v}
	}
	return Listing{Kind: ListingEmpty}
}

// ObjectRefs extracts object names. Each sequence element or text line
// is cut at the first "(" and reduced to its last dotted segment.
func (l Listing) ObjectRefs() []ObjectRef {
	switch l.Kind {
	case ListingStructured:
		return l.itemRefs()
	case ListingFreeText:
		var refs []ObjectRef
		for _, line := range strings.Split(l.Text, "\n") {
			if name := refName(line); name != "" {
				refs = append(refs, ObjectRef{Name: name})
			}
		}
		return refs
	}
	return nil
}

// PredefinedRefs extracts predefined item names. In free text, lines
// carrying PredefinedMarker take precedence; when none do, every line is
// parsed as in ObjectRefs.
func (l Listing) PredefinedRefs() []ObjectRef {
	if l.Kind != ListingFreeText {
		return l.ObjectRefs()
	}
	var refs []ObjectRef
	for _, line := range strings.Split(l.Text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, PredefinedMarker) {
			continue
		}
		name := line[len(PredefinedMarker):]
		if i := strings.IndexByte(name, '\''); i >= 0 {
			name = name[:i]
		}
		if name = strings.TrimSpace(name); name != "" {
			refs = append(refs, ObjectRef{Name: name})
		}
	}
	if len(refs) == 0 {
		return l.ObjectRefs()
	}
	return refs
}

func (l Listing) itemRefs() []ObjectRef {
	var refs []ObjectRef
	for _, item := range l.Items {
		var name string
		switch v := item.(type) {
		case string:
			name = refName(v)
		case map[string]any:
			name = mapName(v)
		case nil:
		default:
			name = refName(fmt.Sprint(v))
		}
		if name != "" {
			refs = append(refs, ObjectRef{Name: name})
		}
	}
	return refs
}

func mapName(m map[string]any) string {
	for _, key := range []string{"name", "Name"} {
		if s, ok := m[key].(string); ok && s != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// refName reduces "Справочник.Номенклатура (Товары)" to "Номенклатура".
func refName(line string) string {
	name := strings.TrimSpace(line)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}
