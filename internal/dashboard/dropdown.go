package dashboard

import (
	"slices"
	"sync"

	"github.com/desertthunder/scrobblex/internal/shared"
)

// Dropdowns keeps at most one dropdown menu open.
type Dropdowns struct {
	mu   sync.Mutex
	view DropdownView
	ids  []string
	open string
}

// NewDropdowns registers ids as closed menus.
func NewDropdowns(view DropdownView, ids ...string) *Dropdowns {
	d := &Dropdowns{view: view}
	for _, id := range ids {
		d.register(id)
	}
	return d
}

// Register adds a closed menu. Registering an id twice is a no-op.
func (d *Dropdowns) Register(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.register(id)
}

func (d *Dropdowns) register(id string) {
	if id == "" || slices.Contains(d.ids, id) {
		return
	}
	d.ids = append(d.ids, id)
}

// Toggle closes every menu and opens id if it was closed.
func (d *Dropdowns) Toggle(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !slices.Contains(d.ids, id) {
		return shared.WithSuggestion(shared.ErrUnknownDropdown, id, d.ids)
	}

	wasOpen := d.open == id
	d.closeAll()
	if !wasOpen {
		d.open = id
		d.emit(id, true)
	}
	return nil
}

// ClickOutside closes every menu unless the click landed inside a dropdown container.
func (d *Dropdowns) ClickOutside(inside bool) {
	if inside {
		return
	}
	d.CloseAll()
}

// CloseAll closes every menu.
func (d *Dropdowns) CloseAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeAll()
}

func (d *Dropdowns) closeAll() {
	for _, id := range d.ids {
		d.emit(id, false)
	}
	d.open = ""
}

func (d *Dropdowns) emit(id string, open bool) {
	if d.view != nil {
		d.view.SetDropdownOpen(id, open)
	}
}

// Open returns the open menu id, or "".
func (d *Dropdowns) Open() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// IsOpen reports whether id is open.
func (d *Dropdowns) IsOpen(id string) bool {
	return d.Open() == id && id != ""
}

// IDs lists the registered menus.
func (d *Dropdowns) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.ids)
}
