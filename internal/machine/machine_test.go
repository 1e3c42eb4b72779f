package machine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/ethercat"
)

type fakeMachine struct {
	id MachineIdentificationUnique
}

func (f *fakeMachine) Act(time.Time)                    {}
func (f *fakeMachine) Mutate(json.RawMessage) error      { return nil }
func (f *fakeMachine) ID() MachineIdentificationUnique   { return f.id }

func TestManagerWeakRefUpgradeTracksLifetime(t *testing.T) {
	mgr := NewManager()
	id := MachineIdentificationUnique{MachineIdentification{1, 2}, 3}
	weak := mgr.WeakRef(id) // taken before registration

	if _, ok := weak.Upgrade(); ok {
		t.Fatal("upgrade should fail before registration")
	}

	m := &fakeMachine{id: id}
	if err := mgr.Register(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := weak.Upgrade()
	if !ok || got != Machine(m) {
		t.Fatalf("expected upgrade to return the registered machine, got %v, %v", got, ok)
	}

	mgr.Unregister(id)
	if _, ok := weak.Upgrade(); ok {
		t.Fatal("upgrade should fail after teardown")
	}
}

func TestManagerRejectsDuplicateRegistration(t *testing.T) {
	mgr := NewManager()
	id := MachineIdentificationUnique{MachineIdentification{1, 2}, 3}
	if err := mgr.Register(&fakeMachine{id: id}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mgr.Register(&fakeMachine{id: id}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestBindGroupsByIdentityAndRejectsUnknownType(t *testing.T) {
	group := &ethercat.Group{
		Slaves: []ethercat.SlaveHandle{
			{Position: 0, MDI: ethercat.SlaveMDI{VendorID: 1, MachineType: 2, SerialNumber: 3, Role: 0}},
			{Position: 1, MDI: ethercat.SlaveMDI{VendorID: 1, MachineType: 2, SerialNumber: 3, Role: 1}},
			{Position: 2, MDI: ethercat.SlaveMDI{}}, // unidentified, skipped
		},
	}
	devices := map[int]device.Device{}
	_, err := Bind(group, devices, Catalogue{}, NewManager())
	if err == nil {
		t.Fatal("expected Bind to fail for an unrecognized machine type")
	}
}

func TestBindRejectsDuplicateRoleWithinGroup(t *testing.T) {
	group := &ethercat.Group{
		Slaves: []ethercat.SlaveHandle{
			{Position: 0, MDI: ethercat.SlaveMDI{VendorID: 1, MachineType: 2, SerialNumber: 3, Role: 0}},
			{Position: 1, MDI: ethercat.SlaveMDI{VendorID: 1, MachineType: 2, SerialNumber: 3, Role: 0}},
		},
	}
	_, err := Bind(group, map[int]device.Device{}, Catalogue{}, NewManager())
	if err == nil {
		t.Fatal("expected duplicate role to be rejected")
	}
}

func TestBindInstantiatesViaCatalogue(t *testing.T) {
	id := MachineIdentification{VendorID: 1, MachineType: 2}
	group := &ethercat.Group{
		Slaves: []ethercat.SlaveHandle{
			{Position: 0, MDI: ethercat.SlaveMDI{VendorID: 1, MachineType: 2, SerialNumber: 3, Role: 0}},
		},
	}
	cat := Catalogue{
		id: func(uid MachineIdentificationUnique, roles map[uint16]device.Device) (Machine, error) {
			return &fakeMachine{id: uid}, nil
		},
	}
	machines, err := Bind(group, map[int]device.Device{}, cat, NewManager())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(machines) != 1 {
		t.Fatalf("expected one machine, got %d", len(machines))
	}
}
