package memstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
)

const (
	tableSlots        = "slots"
	tableAppointments = "appointments"

	indexID         = "id"
	indexDoctor     = "doctor"
	indexSlot       = "slot"
	indexActiveSlot = "active_slot"
)

// schema mirrors the Postgres tables. Rows are stored as *availability.Slot
// and *appointment.Appointment and are never modified after insertion.
func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableSlots: {
				Name: tableSlots,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexDoctor: {
						Name:    indexDoctor,
						Indexer: doctorIndex{},
					},
				},
			},
			tableAppointments: {
				Name: tableAppointments,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexSlot: {
						Name:    indexSlot,
						Indexer: &memdb.IntFieldIndex{Field: "SlotID"},
					},
					// Same rows as appointments_active_slot_uidx: cancelled
					// appointments are left out.
					indexActiveSlot: {
						Name:         indexActiveSlot,
						Unique:       true,
						AllowMissing: true,
						Indexer:      activeSlotIndex{},
					},
				},
			},
		},
	}
}

// doctorIndex keys slots by the 16 bytes of their doctor id.
type doctorIndex struct{}

func (doctorIndex) FromObject(obj any) (bool, []byte, error) {
	slot, ok := obj.(*availability.Slot)
	if !ok {
		return false, nil, fmt.Errorf("doctor index: unexpected object %T", obj)
	}
	id := slot.DoctorID
	return true, id[:], nil
}

func (doctorIndex) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.New("doctor index: want exactly one argument")
	}
	id, ok := args[0].(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("doctor index: argument is %T, want uuid.UUID", args[0])
	}
	return id[:], nil
}

// activeSlotIndex keys active appointments by slot id and skips the rest.
type activeSlotIndex struct{}

func (activeSlotIndex) FromObject(obj any) (bool, []byte, error) {
	a, ok := obj.(*appointment.Appointment)
	if !ok {
		return false, nil, fmt.Errorf("active slot index: unexpected object %T", obj)
	}
	if !a.Status.Active() {
		return false, nil, nil
	}
	return true, slotKey(a.SlotID), nil
}

func (activeSlotIndex) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.New("active slot index: want exactly one argument")
	}
	id, ok := args[0].(int64)
	if !ok {
		return nil, fmt.Errorf("active slot index: argument is %T, want int64", args[0])
	}
	return slotKey(id), nil
}

func slotKey(id int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}
