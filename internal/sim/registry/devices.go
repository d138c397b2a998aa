package registry

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"voltfront.ai/internal/sim/catalogs"
	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power/model"
)

var (
	ErrDuplicateID = errors.New("duplicate device id")
	ErrNoKind      = errors.New("no catalog kind for category")
)

// deviceNamespace seeds name-based device ids so every participant derives
// the same id for the same placement sequence.
var deviceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("voltfront.ai/device"))

var validate = validator.New()

// Devices is an in-memory model.DeviceRegistry. Devices() preserves
// insertion order.
type Devices struct {
	catalog *catalogs.Catalog

	order []string
	byID  map[string]*model.Device
	seq   uint64
}

func NewDevices(cat *catalogs.Catalog) *Devices {
	if cat == nil {
		cat = catalogs.Defaults()
	}
	return &Devices{catalog: cat, byID: map[string]*model.Device{}}
}

func (r *Devices) Catalog() *catalogs.Catalog { return r.catalog }

func (r *Devices) Len() int { return len(r.order) }

// Add registers an already-canonical device.
func (r *Devices) Add(d model.Device) (*model.Device, error) {
	if err := validateDevice(d); err != nil {
		return nil, err
	}
	if _, dup := r.byID[d.ID]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	cp := d
	if d.Pos != nil {
		p := *d.Pos
		cp.Pos = &p
	}
	r.byID[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	return &cp, nil
}

func (r *Devices) Devices() []*model.Device {
	out := make([]*model.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Devices) Device(id string) (*model.Device, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Create places a new device of the category's default kind.
func (r *Devices) Create(cat model.Category, at hexgrid.Coord) (*model.Device, error) {
	kind, ok := r.catalog.ForCategory(cat)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoKind, cat)
	}
	return r.createKind(kind, at)
}

// CreateKind places a new device resolved from a raw kind name.
func (r *Devices) CreateKind(raw string, at hexgrid.Coord) (*model.Device, error) {
	kind, ok := r.catalog.Resolve(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoKind, raw)
	}
	return r.createKind(kind, at)
}

func (r *Devices) createKind(kind catalogs.KindDef, at hexgrid.Coord) (*model.Device, error) {
	for {
		r.seq++
		name := fmt.Sprintf("%d|%s|%s", r.seq, kind.Category, at)
		id := uuid.NewSHA1(deviceNamespace, []byte(name)).String()
		if _, taken := r.byID[id]; taken {
			continue
		}
		pos := at
		return r.Add(model.Device{
			ID:       id,
			Kind:     kind.ID,
			Category: kind.Category,
			Pos:      &pos,
			Energy:   kind.Energy,
		})
	}
}

func (r *Devices) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func validateDevice(d model.Device) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("device %q: %w", d.ID, err)
	}
	return nil
}
