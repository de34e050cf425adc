package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/akarpov/homehub/internal/device"
)

// State identifies where a conversation currently is.
type State string

// Conversation states.
const (
	StateIdle               State = "idle"
	StateAddSetName         State = "add_set_name"
	StateAddSetType         State = "add_set_type"
	StateAddSetManufacturer State = "add_set_manufacturer"
	StateAddSetMAC          State = "add_set_mac"
	StateAddSetAddress      State = "add_set_address"
	StateEditName           State = "edit_name"
	StateEditMAC            State = "edit_mac"
	StateEditAddress        State = "edit_address"
)

// AddPayload accumulates the fields of a device being added.
type AddPayload struct {
	Name         string              `json:"name,omitempty"`
	Type         device.DeviceType   `json:"type,omitempty"`
	Manufacturer device.Manufacturer `json:"manufacturer,omitempty"`
	MAC          *string             `json:"mac,omitempty"`
}

// EditPayload identifies the device whose field is being edited.
type EditPayload struct {
	DeviceID int64 `json:"device_id"`
}

// Payload is the per-conversation data carried between turns.
type Payload struct {
	Add  *AddPayload  `json:"add,omitempty"`
	Edit *EditPayload `json:"edit,omitempty"`
}

// Action identifies what a keyboard button does when pressed.
type Action string

// Button actions.
const (
	ActionBackToStatus       Action = "back_to_status"
	ActionBackToSetType      Action = "back_to_set_type"
	ActionBackToSetMAC       Action = "back_to_set_mac"
	ActionChooseType         Action = "choose_type"
	ActionChooseManufacturer Action = "choose_manufacturer"
	ActionShowDevice         Action = "show_device"
	ActionEditDevice         Action = "edit_device"
)

// Button is one keyboard button on a reply.
type Button struct {
	Label    string
	Action   Action
	Value    string
	DeviceID int64
}

// Reply is what the conversation says back after a turn.
type Reply struct {
	Text     string
	Keyboard [][]Button
}

// Checker answers uniqueness probes. excludeID ignores one device id
// so edits can keep their current values; 0 excludes nothing.
type Checker interface {
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	MACTaken(ctx context.Context, mac string, excludeID int64) (bool, error)
	AddressTaken(ctx context.Context, address string, excludeID int64) (bool, error)
}

// DeviceWriter applies the create/edit the conversation produces.
type DeviceWriter interface {
	GetDevice(ctx context.Context, id int64) (*device.Device, error)
	CreateDevice(ctx context.Context, d *device.Device) error
	UpdateDevice(ctx context.Context, d *device.Device) error
}

// Machine runs the onboarding and edit conversations. Transitions mutate
// nothing outside the passed payload; all persistence goes through the
// injected Checker and DeviceWriter.
type Machine struct {
	checker Checker
	devices DeviceWriter
}

// NewMachine creates a conversation state machine.
func NewMachine(checker Checker, devices DeviceWriter) (*Machine, error) {
	if checker == nil || devices == nil {
		return nil, fmt.Errorf("bot: checker and device writer are required")
	}
	return &Machine{checker: checker, devices: devices}, nil
}

var (
	backToStatusButton  = Button{Label: "Back to devices", Action: ActionBackToStatus}
	backToSetTypeButton = Button{Label: "Back to type selection", Action: ActionBackToSetType}
	backToSetMACButton  = Button{Label: "Back to MAC entry", Action: ActionBackToSetMAC}
)

func backToEditKeyboard(deviceID int64) [][]Button {
	return [][]Button{{
		{Label: "Back to device", Action: ActionEditDevice, DeviceID: deviceID},
	}}
}

// Prompt renders the question a state asks on entry. Used when a flow
// starts and when a back button re-enters an earlier state.
func (m *Machine) Prompt(state State, payload Payload) Reply {
	switch state {
	case StateAddSetName:
		return Reply{
			Text:     "Enter the device name",
			Keyboard: [][]Button{{backToStatusButton}},
		}
	case StateAddSetType:
		return typeKeyboardReply()
	case StateAddSetManufacturer:
		return manufacturerKeyboardReply(payload)
	case StateAddSetMAC:
		return Reply{
			Text:     `Enter the MAC address, or "-" for none`,
			Keyboard: [][]Button{{backToSetTypeButton}, {backToStatusButton}},
		}
	case StateAddSetAddress:
		return Reply{
			Text:     "Enter the device address",
			Keyboard: [][]Button{{backToSetMACButton}, {backToStatusButton}},
		}
	case StateEditName:
		return editPrompt(payload, "Enter the new name")
	case StateEditMAC:
		return editPrompt(payload, `Enter the new MAC address, or "-" to remove it`)
	case StateEditAddress:
		return editPrompt(payload, "Enter the new address")
	default:
		return Reply{Text: "Nothing in progress"}
	}
}

func editPrompt(payload Payload, text string) Reply {
	reply := Reply{Text: text}
	if payload.Edit != nil {
		reply.Keyboard = backToEditKeyboard(payload.Edit.DeviceID)
	}
	return reply
}

func typeKeyboardReply() Reply {
	var row []Button
	for _, t := range device.SelectableDeviceTypes() {
		row = append(row, Button{Label: typeLabel(t), Action: ActionChooseType, Value: string(t)})
	}
	return Reply{
		Text:     "Choose the device type",
		Keyboard: [][]Button{row, {backToStatusButton}},
	}
}

func manufacturerKeyboardReply(payload Payload) Reply {
	options := []device.Manufacturer{device.ManufacturerOther, device.ManufacturerUnknown}
	if payload.Add != nil && payload.Add.Type == device.DeviceTypeLightbulb {
		options = append([]device.Manufacturer{device.ManufacturerYeelight}, options...)
	}

	var row []Button
	for _, man := range options {
		row = append(row, Button{Label: manufacturerLabel(man), Action: ActionChooseManufacturer, Value: string(man)})
	}
	return Reply{
		Text:     "Choose the manufacturer",
		Keyboard: [][]Button{row, {backToSetTypeButton}, {backToStatusButton}},
	}
}

func typeLabel(t device.DeviceType) string {
	switch t {
	case device.DeviceTypeLightbulb:
		return "Lightbulb"
	case device.DeviceTypeTv:
		return "TV"
	case device.DeviceTypeSocket:
		return "Socket"
	default:
		return "Other"
	}
}

func manufacturerLabel(m device.Manufacturer) string {
	switch m {
	case device.ManufacturerYeelight:
		return "Yeelight"
	case device.ManufacturerOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Transition consumes one input in the given state and returns the next
// state, the updated payload and the reply to render. Validation failures
// stay in the same state with an explanatory re-prompt.
func (m *Machine) Transition(ctx context.Context, state State, payload Payload, input string) (State, Payload, Reply, error) {
	switch state {
	case StateAddSetName:
		return m.addSetName(ctx, payload, input)
	case StateAddSetType:
		return m.addSetType(payload, input)
	case StateAddSetManufacturer:
		return m.addSetManufacturer(payload, input)
	case StateAddSetMAC:
		return m.addSetMAC(ctx, payload, input)
	case StateAddSetAddress:
		return m.addSetAddress(ctx, payload, input)
	case StateEditName:
		return m.editName(ctx, payload, input)
	case StateEditMAC:
		return m.editMAC(ctx, payload, input)
	case StateEditAddress:
		return m.editAddress(ctx, payload, input)
	default:
		return state, payload, Reply{}, fmt.Errorf("%w: %s", ErrUnknownState, state)
	}
}

func (m *Machine) addSetName(ctx context.Context, payload Payload, input string) (State, Payload, Reply, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return StateAddSetName, payload, Reply{
			Text:     "Device name must be at least 1 character",
			Keyboard: [][]Button{{backToStatusButton}},
		}, nil
	}

	taken, err := m.checker.NameTaken(ctx, name, 0)
	if err != nil {
		return StateAddSetName, payload, Reply{}, err
	}
	if taken {
		return StateAddSetName, payload, Reply{
			Text:     "Device name must be unique",
			Keyboard: [][]Button{{backToStatusButton}},
		}, nil
	}

	if payload.Add == nil {
		payload.Add = &AddPayload{}
	}
	payload.Add.Name = name
	return StateAddSetType, payload, typeKeyboardReply(), nil
}

func (m *Machine) addSetType(payload Payload, input string) (State, Payload, Reply, error) {
	chosen := device.DeviceType(input)
	valid := false
	for _, t := range device.SelectableDeviceTypes() {
		if chosen == t {
			valid = true
			break
		}
	}
	if !valid {
		return StateAddSetType, payload, typeKeyboardReply(), nil
	}

	if payload.Add == nil {
		payload.Add = &AddPayload{}
	}
	payload.Add.Type = chosen
	return StateAddSetManufacturer, payload, manufacturerKeyboardReply(payload), nil
}

func (m *Machine) addSetManufacturer(payload Payload, input string) (State, Payload, Reply, error) {
	chosen := device.Manufacturer(input)
	valid := false
	for _, man := range device.AllManufacturers() {
		if chosen == man {
			valid = true
			break
		}
	}
	if !valid {
		return StateAddSetManufacturer, payload, manufacturerKeyboardReply(payload), nil
	}

	if payload.Add == nil {
		payload.Add = &AddPayload{}
	}
	payload.Add.Manufacturer = chosen
	return StateAddSetMAC, payload, m.Prompt(StateAddSetMAC, payload), nil
}

func (m *Machine) addSetMAC(ctx context.Context, payload Payload, input string) (State, Payload, Reply, error) {
	mac, reply, err := m.checkMAC(ctx, input, 0, [][]Button{{backToSetTypeButton}, {backToStatusButton}})
	if err != nil {
		return StateAddSetMAC, payload, Reply{}, err
	}
	if reply != nil {
		return StateAddSetMAC, payload, *reply, nil
	}

	if payload.Add == nil {
		payload.Add = &AddPayload{}
	}
	payload.Add.MAC = mac
	return StateAddSetAddress, payload, m.Prompt(StateAddSetAddress, payload), nil
}

func (m *Machine) addSetAddress(ctx context.Context, payload Payload, input string) (State, Payload, Reply, error) {
	keyboard := [][]Button{{backToSetMACButton}, {backToStatusButton}}

	address := strings.TrimSpace(input)
	if address == "" {
		return StateAddSetAddress, payload, Reply{
			Text:     "Device address must be at least 1 character",
			Keyboard: keyboard,
		}, nil
	}

	taken, err := m.checker.AddressTaken(ctx, address, 0)
	if err != nil {
		return StateAddSetAddress, payload, Reply{}, err
	}
	if taken {
		return StateAddSetAddress, payload, Reply{
			Text:     "Device address must be unique",
			Keyboard: keyboard,
		}, nil
	}

	add := payload.Add
	if add == nil {
		add = &AddPayload{}
	}
	dev := &device.Device{
		Name:         add.Name,
		Type:         add.Type,
		Manufacturer: add.Manufacturer,
		MAC:          add.MAC,
		Address:      &address,
	}
	if err := m.devices.CreateDevice(ctx, dev); err != nil {
		return StateAddSetAddress, payload, Reply{}, err
	}

	payload.Add = nil
	return StateIdle, payload, Reply{
		Text: "Device added!",
		Keyboard: [][]Button{{
			{Label: "Open device", Action: ActionShowDevice, DeviceID: dev.ID},
		}},
	}, nil
}

func (m *Machine) editName(ctx context.Context, payload Payload, input string) (State, Payload, Reply, error) {
	edit := payload.Edit
	if edit == nil {
		return StateIdle, payload, Reply{Text: "Nothing in progress"}, nil
	}
	keyboard := backToEditKeyboard(edit.DeviceID)

	name := strings.TrimSpace(input)
	if name == "" {
		return StateEditName, payload, Reply{
			Text:     "Device name must be at least 1 character",
			Keyboard: keyboard,
		}, nil
	}

	taken, err := m.checker.NameTaken(ctx, name, edit.DeviceID)
	if err != nil {
		return StateEditName, payload, Reply{}, err
	}
	if taken {
		return StateEditName, payload, Reply{
			Text:     "Device name must be unique",
			Keyboard: keyboard,
		}, nil
	}

	if err := m.updateField(ctx, edit.DeviceID, func(d *device.Device) {
		d.Name = name
	}); err != nil {
		return StateEditName, payload, Reply{}, err
	}

	payload.Edit = nil
	return StateIdle, payload, Reply{Text: "Name updated", Keyboard: keyboard}, nil
}

func (m *Machine) editMAC(ctx context.Context, payload Payload, input string) (State, Payload, Reply, error) {
	edit := payload.Edit
	if edit == nil {
		return StateIdle, payload, Reply{Text: "Nothing in progress"}, nil
	}
	keyboard := backToEditKeyboard(edit.DeviceID)

	mac, reply, err := m.checkMAC(ctx, input, edit.DeviceID, keyboard)
	if err != nil {
		return StateEditMAC, payload, Reply{}, err
	}
	if reply != nil {
		return StateEditMAC, payload, *reply, nil
	}

	if err := m.updateField(ctx, edit.DeviceID, func(d *device.Device) {
		d.MAC = mac
	}); err != nil {
		return StateEditMAC, payload, Reply{}, err
	}

	text := "MAC updated"
	if mac == nil {
		text = "MAC removed"
	}
	payload.Edit = nil
	return StateIdle, payload, Reply{Text: text, Keyboard: keyboard}, nil
}

func (m *Machine) editAddress(ctx context.Context, payload Payload, input string) (State, Payload, Reply, error) {
	edit := payload.Edit
	if edit == nil {
		return StateIdle, payload, Reply{Text: "Nothing in progress"}, nil
	}
	keyboard := backToEditKeyboard(edit.DeviceID)

	address := strings.TrimSpace(input)
	if address == "" {
		return StateEditAddress, payload, Reply{
			Text:     "Device address must be at least 1 character",
			Keyboard: keyboard,
		}, nil
	}

	taken, err := m.checker.AddressTaken(ctx, address, edit.DeviceID)
	if err != nil {
		return StateEditAddress, payload, Reply{}, err
	}
	if taken {
		return StateEditAddress, payload, Reply{
			Text:     "Device address must be unique",
			Keyboard: keyboard,
		}, nil
	}

	if err := m.updateField(ctx, edit.DeviceID, func(d *device.Device) {
		d.Address = &address
	}); err != nil {
		return StateEditAddress, payload, Reply{}, err
	}

	payload.Edit = nil
	return StateIdle, payload, Reply{Text: "Address updated", Keyboard: keyboard}, nil
}

// checkMAC validates and uniqueness-checks a MAC input. Returns the
// normalised MAC (nil for "-"), or a re-prompt reply when the input is
// rejected.
func (m *Machine) checkMAC(ctx context.Context, input string, excludeID int64, keyboard [][]Button) (*string, *Reply, error) {
	raw := strings.TrimSpace(input)
	if raw == "-" {
		return nil, nil, nil
	}

	mac, err := device.NormalizeMAC(raw)
	if err != nil {
		return nil, &Reply{
			Text:     "Enter a valid MAC address (example: 12:23:56:9f:aa:bb)",
			Keyboard: keyboard,
		}, nil
	}

	taken, err := m.checker.MACTaken(ctx, mac, excludeID)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, &Reply{
			Text:     "MAC address must be unique",
			Keyboard: keyboard,
		}, nil
	}
	return &mac, nil, nil
}

func (m *Machine) updateField(ctx context.Context, deviceID int64, apply func(*device.Device)) error {
	dev, err := m.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	apply(dev)
	return m.devices.UpdateDevice(ctx, dev)
}
