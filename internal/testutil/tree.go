package testutil

import (
	"fmt"

	"github.com/roach88/flash/internal/element"
)

// List builds <ul> with one keyed <li> per key, each holding "Item <key>".
func List(keys ...int) *element.Descriptor {
	children := make([]element.Child, len(keys))
	for i, k := range keys {
		children[i] = Item(k)
	}
	return element.Build("ul", nil, children...)
}

// Item builds <li key=k>Item k</li>.
func Item(k int) *element.Descriptor {
	return element.Keyed(k, "li", nil, element.Text(fmt.Sprintf("Item %d", k)))
}

// ListHTML is the markup Memory renders for List(keys...).
func ListHTML(keys ...int) string {
	s := "<ul>"
	for _, k := range keys {
		s += fmt.Sprintf("<li>Item %d</li>", k)
	}
	return s + "</ul>"
}
