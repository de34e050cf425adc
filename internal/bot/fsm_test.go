package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/akarpov/homehub/internal/device"
)

type mockChecker struct {
	takenNames     map[string]bool
	takenMACs      map[string]bool
	takenAddresses map[string]bool
	excludeSeen    []int64
	probeErr       error
}

func newMockChecker() *mockChecker {
	return &mockChecker{
		takenNames:     make(map[string]bool),
		takenMACs:      make(map[string]bool),
		takenAddresses: make(map[string]bool),
	}
}

func (m *mockChecker) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	m.excludeSeen = append(m.excludeSeen, excludeID)
	return m.takenNames[name], nil
}

func (m *mockChecker) MACTaken(_ context.Context, mac string, excludeID int64) (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	m.excludeSeen = append(m.excludeSeen, excludeID)
	return m.takenMACs[mac], nil
}

func (m *mockChecker) AddressTaken(_ context.Context, address string, excludeID int64) (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	m.excludeSeen = append(m.excludeSeen, excludeID)
	return m.takenAddresses[address], nil
}

type mockWriter struct {
	devices   map[int64]*device.Device
	nextID    int64
	createErr error
	updateErr error

	created []*device.Device
	updated []*device.Device
}

func newMockWriter(devices ...*device.Device) *mockWriter {
	m := &mockWriter{devices: make(map[int64]*device.Device), nextID: 100}
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	return m
}

func (m *mockWriter) GetDevice(_ context.Context, id int64) (*device.Device, error) {
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (m *mockWriter) CreateDevice(_ context.Context, d *device.Device) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	d.ID = m.nextID
	m.devices[d.ID] = d.DeepCopy()
	m.created = append(m.created, d.DeepCopy())
	return nil
}

func (m *mockWriter) UpdateDevice(_ context.Context, d *device.Device) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.devices[d.ID] = d.DeepCopy()
	m.updated = append(m.updated, d.DeepCopy())
	return nil
}

func testMachine(t *testing.T, checker Checker, writer DeviceWriter) *Machine {
	t.Helper()
	m, err := NewMachine(checker, writer)
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	return m
}

func mustTransition(t *testing.T, m *Machine, state State, payload Payload, input string) (State, Payload, Reply) {
	t.Helper()
	next, newPayload, reply, err := m.Transition(context.Background(), state, payload, input)
	if err != nil {
		t.Fatalf("Transition(%s, %q) error = %v", state, input, err)
	}
	return next, newPayload, reply
}

func TestMachine_AddFlow(t *testing.T) {
	checker := newMockChecker()
	writer := newMockWriter()
	m := testMachine(t, checker, writer)

	state, payload, _ := mustTransition(t, m, StateAddSetName, Payload{}, "Desk Lamp")
	if state != StateAddSetType {
		t.Fatalf("after name: state = %s, want %s", state, StateAddSetType)
	}
	if payload.Add == nil || payload.Add.Name != "Desk Lamp" {
		t.Fatalf("payload after name = %+v", payload.Add)
	}

	state, payload, reply := mustTransition(t, m, state, payload, string(device.DeviceTypeLightbulb))
	if state != StateAddSetManufacturer {
		t.Fatalf("after type: state = %s, want %s", state, StateAddSetManufacturer)
	}
	if len(reply.Keyboard) == 0 || reply.Keyboard[0][0].Value != string(device.ManufacturerYeelight) {
		t.Errorf("lightbulb manufacturer keyboard should offer yeelight first, got %+v", reply.Keyboard)
	}

	state, payload, _ = mustTransition(t, m, state, payload, string(device.ManufacturerYeelight))
	if state != StateAddSetMAC {
		t.Fatalf("after manufacturer: state = %s, want %s", state, StateAddSetMAC)
	}

	state, payload, _ = mustTransition(t, m, state, payload, "aa:bb:cc:dd:ee:ff")
	if state != StateAddSetAddress {
		t.Fatalf("after mac: state = %s, want %s", state, StateAddSetAddress)
	}
	if payload.Add.MAC == nil || *payload.Add.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("mac = %v, want normalised AA:BB:CC:DD:EE:FF", payload.Add.MAC)
	}

	state, payload, reply = mustTransition(t, m, state, payload, "192.168.1.40")
	if state != StateIdle {
		t.Fatalf("after address: state = %s, want %s", state, StateIdle)
	}
	if payload.Add != nil {
		t.Error("payload should be cleared after creation")
	}
	if reply.Text != "Device added!" {
		t.Errorf("reply = %q, want confirmation", reply.Text)
	}
	if len(reply.Keyboard) == 0 || reply.Keyboard[0][0].Action != ActionShowDevice {
		t.Errorf("confirmation should carry an open-device button, got %+v", reply.Keyboard)
	}

	if len(writer.created) != 1 {
		t.Fatalf("created devices = %d, want 1", len(writer.created))
	}
	created := writer.created[0]
	if created.Name != "Desk Lamp" || created.Type != device.DeviceTypeLightbulb ||
		created.Manufacturer != device.ManufacturerYeelight {
		t.Errorf("created device = %+v", created)
	}
	if created.Address == nil || *created.Address != "192.168.1.40" {
		t.Errorf("created address = %v", created.Address)
	}
}

func TestMachine_AddSetName(t *testing.T) {
	checker := newMockChecker()
	checker.takenNames["Desk Lamp"] = true
	m := testMachine(t, checker, newMockWriter())

	t.Run("empty name re-prompts", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetName, Payload{}, "   ")
		if state != StateAddSetName {
			t.Errorf("state = %s, want re-prompt in %s", state, StateAddSetName)
		}
		if reply.Text != "Device name must be at least 1 character" {
			t.Errorf("reply = %q", reply.Text)
		}
		if len(reply.Keyboard) == 0 || reply.Keyboard[0][0].Action != ActionBackToStatus {
			t.Errorf("re-prompt should carry a back-to-status button")
		}
	})

	t.Run("duplicate name re-prompts", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetName, Payload{}, "Desk Lamp")
		if state != StateAddSetName {
			t.Errorf("state = %s, want re-prompt", state)
		}
		if reply.Text != "Device name must be unique" {
			t.Errorf("reply = %q", reply.Text)
		}
	})

	t.Run("checker error propagates", func(t *testing.T) {
		broken := newMockChecker()
		broken.probeErr = errors.New("db gone")
		m := testMachine(t, broken, newMockWriter())

		_, _, _, err := m.Transition(context.Background(), StateAddSetName, Payload{}, "Desk Lamp")
		if !errors.Is(err, broken.probeErr) {
			t.Errorf("Transition() error = %v, want probe error", err)
		}
	})
}

func TestMachine_AddSetType(t *testing.T) {
	m := testMachine(t, newMockChecker(), newMockWriter())

	t.Run("free text re-renders keyboard", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetType, Payload{}, "whatever")
		if state != StateAddSetType {
			t.Errorf("state = %s, want re-prompt", state)
		}
		if reply.Text != "Choose the device type" {
			t.Errorf("reply = %q", reply.Text)
		}
	})

	t.Run("unknown is not selectable", func(t *testing.T) {
		state, _, _ := mustTransition(t, m, StateAddSetType, Payload{}, string(device.DeviceTypeUnknown))
		if state != StateAddSetType {
			t.Errorf("state = %s, unknown should not be offered", state)
		}
	})

	t.Run("non-lightbulb offers no yeelight", func(t *testing.T) {
		_, _, reply := mustTransition(t, m, StateAddSetType, Payload{}, string(device.DeviceTypeTv))
		for _, row := range reply.Keyboard {
			for _, btn := range row {
				if btn.Value == string(device.ManufacturerYeelight) {
					t.Errorf("tv manufacturer keyboard offers yeelight")
				}
			}
		}
	})
}

func TestMachine_AddSetMAC(t *testing.T) {
	checker := newMockChecker()
	checker.takenMACs["AA:BB:CC:DD:EE:FF"] = true
	m := testMachine(t, checker, newMockWriter())

	t.Run("dash means no mac", func(t *testing.T) {
		state, payload, _ := mustTransition(t, m, StateAddSetMAC, Payload{Add: &AddPayload{}}, "-")
		if state != StateAddSetAddress {
			t.Fatalf("state = %s, want %s", state, StateAddSetAddress)
		}
		if payload.Add.MAC != nil {
			t.Errorf("mac = %v, want nil", payload.Add.MAC)
		}
	})

	t.Run("invalid mac re-prompts with example and back buttons", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetMAC, Payload{}, "not-a-mac")
		if state != StateAddSetMAC {
			t.Errorf("state = %s, want re-prompt", state)
		}
		if reply.Text != "Enter a valid MAC address (example: 12:23:56:9f:aa:bb)" {
			t.Errorf("reply = %q", reply.Text)
		}
		if len(reply.Keyboard) != 2 ||
			reply.Keyboard[0][0].Action != ActionBackToSetType ||
			reply.Keyboard[1][0].Action != ActionBackToStatus {
			t.Errorf("keyboard = %+v, want back-to-type and back-to-status", reply.Keyboard)
		}
	})

	t.Run("duplicate mac re-prompts case-insensitively", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetMAC, Payload{}, "aa:bb:cc:dd:ee:ff")
		if state != StateAddSetMAC {
			t.Errorf("state = %s, want re-prompt", state)
		}
		if reply.Text != "MAC address must be unique" {
			t.Errorf("reply = %q", reply.Text)
		}
	})
}

func TestMachine_AddSetAddress(t *testing.T) {
	checker := newMockChecker()
	checker.takenAddresses["192.168.1.40"] = true
	m := testMachine(t, checker, newMockWriter())

	t.Run("empty address re-prompts", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetAddress, Payload{}, "")
		if state != StateAddSetAddress {
			t.Errorf("state = %s, want re-prompt", state)
		}
		if reply.Text != "Device address must be at least 1 character" {
			t.Errorf("reply = %q", reply.Text)
		}
	})

	t.Run("duplicate address re-prompts", func(t *testing.T) {
		state, _, reply := mustTransition(t, m, StateAddSetAddress, Payload{}, "192.168.1.40")
		if state != StateAddSetAddress {
			t.Errorf("state = %s, want re-prompt", state)
		}
		if reply.Text != "Device address must be unique" {
			t.Errorf("reply = %q", reply.Text)
		}
	})

	t.Run("create failure propagates", func(t *testing.T) {
		writer := newMockWriter()
		writer.createErr = errors.New("store gone")
		m := testMachine(t, newMockChecker(), writer)

		_, _, _, err := m.Transition(context.Background(), StateAddSetAddress, Payload{}, "192.168.1.41")
		if !errors.Is(err, writer.createErr) {
			t.Errorf("Transition() error = %v, want create error", err)
		}
	})
}

func TestMachine_EditName(t *testing.T) {
	checker := newMockChecker()
	writer := newMockWriter(&device.Device{ID: 5, Name: "Old Name", Type: device.DeviceTypeTv})
	m := testMachine(t, checker, writer)
	payload := Payload{Edit: &EditPayload{DeviceID: 5}}

	state, newPayload, reply := mustTransition(t, m, StateEditName, payload, "New Name")
	if state != StateIdle {
		t.Fatalf("state = %s, want %s", state, StateIdle)
	}
	if newPayload.Edit != nil {
		t.Error("edit payload should be cleared")
	}
	if reply.Text != "Name updated" {
		t.Errorf("reply = %q", reply.Text)
	}
	if len(writer.updated) != 1 || writer.updated[0].Name != "New Name" {
		t.Errorf("updated = %+v", writer.updated)
	}

	// Uniqueness probes must exclude the edited device's own id.
	for _, id := range checker.excludeSeen {
		if id != 5 {
			t.Errorf("probe excludeID = %d, want 5", id)
		}
	}
}

func TestMachine_EditMAC(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantText  string
		wantMAC   *string
		wantState State
	}{
		{
			name:      "set replies mac updated",
			input:     "12:23:56:9f:aa:bb",
			wantText:  "MAC updated",
			wantMAC:   strPtr("12:23:56:9F:AA:BB"),
			wantState: StateIdle,
		},
		{
			name:      "dash replies mac removed",
			input:     "-",
			wantText:  "MAC removed",
			wantMAC:   nil,
			wantState: StateIdle,
		},
		{
			name:      "invalid re-prompts",
			input:     "zz:zz",
			wantText:  "Enter a valid MAC address (example: 12:23:56:9f:aa:bb)",
			wantState: StateEditMAC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := newMockWriter(&device.Device{
				ID:   5,
				Name: "TV",
				Type: device.DeviceTypeTv,
				MAC:  strPtr("AA:BB:CC:DD:EE:FF"),
			})
			m := testMachine(t, newMockChecker(), writer)

			state, _, reply := mustTransition(t, m, StateEditMAC, Payload{Edit: &EditPayload{DeviceID: 5}}, tt.input)
			if state != tt.wantState {
				t.Errorf("state = %s, want %s", state, tt.wantState)
			}
			if reply.Text != tt.wantText {
				t.Errorf("reply = %q, want %q", reply.Text, tt.wantText)
			}

			if tt.wantState != StateIdle {
				if len(writer.updated) != 0 {
					t.Errorf("device updated on rejected input")
				}
				return
			}
			got := writer.devices[5].MAC
			switch {
			case tt.wantMAC == nil && got != nil:
				t.Errorf("mac = %v, want nil", *got)
			case tt.wantMAC != nil && (got == nil || *got != *tt.wantMAC):
				t.Errorf("mac = %v, want %v", got, *tt.wantMAC)
			}
		})
	}
}

func TestMachine_EditAddress(t *testing.T) {
	writer := newMockWriter(&device.Device{ID: 5, Name: "TV", Type: device.DeviceTypeTv})
	m := testMachine(t, newMockChecker(), writer)

	state, _, reply := mustTransition(t, m, StateEditAddress, Payload{Edit: &EditPayload{DeviceID: 5}}, "192.168.1.90")
	if state != StateIdle {
		t.Fatalf("state = %s, want %s", state, StateIdle)
	}
	if reply.Text != "Address updated" {
		t.Errorf("reply = %q", reply.Text)
	}
	got := writer.devices[5].Address
	if got == nil || *got != "192.168.1.90" {
		t.Errorf("address = %v, want 192.168.1.90", got)
	}
}

func TestMachine_EditWithoutPayloadResets(t *testing.T) {
	m := testMachine(t, newMockChecker(), newMockWriter())

	state, _, _ := mustTransition(t, m, StateEditName, Payload{}, "whatever")
	if state != StateIdle {
		t.Errorf("state = %s, want reset to idle", state)
	}
}

func TestMachine_UnknownState(t *testing.T) {
	m := testMachine(t, newMockChecker(), newMockWriter())

	_, _, _, err := m.Transition(context.Background(), State("bogus"), Payload{}, "x")
	if !errors.Is(err, ErrUnknownState) {
		t.Errorf("Transition() error = %v, want ErrUnknownState", err)
	}
}

func strPtr(s string) *string {
	return &s
}
