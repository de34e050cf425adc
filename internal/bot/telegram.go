package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akarpov/homehub/internal/control"
	"github.com/akarpov/homehub/internal/device"
)

const updateTimeoutSeconds = 30

// Logger is the logging interface used by the bot package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceReader is the read side of the device inventory the bot renders.
type DeviceReader interface {
	GetDevice(ctx context.Context, id int64) (*device.Device, error)
	FindDevice(ctx context.Context, query string) (*device.Device, error)
}

// Commander issues power and lifecycle commands.
type Commander interface {
	TurnOn(ctx context.Context, deviceID int64) error
	TurnOff(ctx context.Context, deviceID int64) error
	DeleteDevice(ctx context.Context, deviceID int64) error
}

// StateReader builds live device views.
type StateReader interface {
	GetDeviceInfo(ctx context.Context, deviceID int64) (*control.DeviceInfo, error)
	ListDeviceInfo(ctx context.Context) ([]*control.DeviceInfo, error)
	UnknownDevices(ctx context.Context) ([]control.UnknownEntry, error)
}

// Transport-level callback actions, alongside the machine's own.
const (
	actionAddDevice   = "add_device"
	actionTurnOn      = "turn_on"
	actionTurnOff     = "turn_off"
	actionRefresh     = "refresh"
	actionDelete      = "delete"
	actionEditName    = "edit_name"
	actionEditMAC     = "edit_mac"
	actionEditAddress = "edit_address"
)

// BotOptions wires a Bot's dependencies.
type BotOptions struct {
	Token        string
	AllowedChats []int64
	Machine      *Machine
	Sessions     SessionStore
	Devices      DeviceReader
	Commander    Commander
	States       StateReader
	Logger       Logger
}

// Bot is the Telegram long-poll front end. Each update loads the chat's
// session, runs one conversation turn and rewrites the session.
type Bot struct {
	api          *tgbotapi.BotAPI
	allowedChats map[int64]bool
	machine      *Machine
	sessions     SessionStore
	devices      DeviceReader
	commander    Commander
	states       StateReader

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBot creates a Telegram bot front end and dials the Bot API.
func NewBot(opts BotOptions) (*Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("bot: token is required")
	}
	if opts.Machine == nil || opts.Sessions == nil || opts.Devices == nil {
		return nil, fmt.Errorf("bot: machine, sessions and devices are required")
	}

	api, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("dialling telegram: %w", err)
	}

	allowed := make(map[int64]bool, len(opts.AllowedChats))
	for _, id := range opts.AllowedChats {
		allowed[id] = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bot{
		api:          api,
		allowedChats: allowed,
		machine:      opts.Machine,
		sessions:     opts.Sessions,
		devices:      opts.Devices,
		commander:    opts.Commander,
		states:       opts.States,
		logger:       logger,
	}, nil
}

// SetLogger replaces the bot's logger.
func (b *Bot) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	if logger != nil {
		b.logger = logger
	}
}

func (b *Bot) log() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	b.log().Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if !b.chatAllowed(update.Message.Chat.ID) {
			b.log().Warn("message from disallowed chat", "chat_id", update.Message.Chat.ID)
			return
		}
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message == nil || !b.chatAllowed(update.CallbackQuery.Message.Chat.ID) {
			return
		}
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) chatAllowed(chatID int64) bool {
	if len(b.allowedChats) == 0 {
		return true
	}
	return b.allowedChats[chatID]
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	session, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.log().Error("loading session", "chat_id", chatID, "error", err)
		b.sendText(chatID, "Something went wrong, try again")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, session, msg)
		return
	}

	if session.State == StateIdle {
		b.handleSearch(ctx, chatID, msg.Text)
		return
	}

	next, payload, reply, err := b.machine.Transition(ctx, session.State, session.Payload, msg.Text)
	if err != nil {
		b.log().Error("conversation turn failed", "chat_id", chatID, "state", session.State, "error", err)
		b.resetSession(ctx, session)
		b.sendText(chatID, "Something went wrong, try again")
		return
	}

	session.State = next
	session.Payload = payload
	if err := b.sessions.Put(ctx, session); err != nil {
		b.log().Error("saving session", "chat_id", chatID, "error", err)
	}
	b.sendReply(chatID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, session *Session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "devices":
		b.resetSession(ctx, session)
		b.sendStatus(ctx, chatID)
	case "add":
		b.startAdd(ctx, session)
	case "unknown":
		b.resetSession(ctx, session)
		b.sendUnknown(ctx, chatID)
	default:
		b.sendText(chatID, "Unknown command")
	}
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		b.sendStatus(ctx, chatID)
		return
	}

	dev, err := b.devices.FindDevice(ctx, query)
	if err != nil {
		b.sendText(chatID, "No device matches that")
		return
	}
	b.sendDevice(ctx, chatID, dev.ID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	// Ack first so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log().Debug("callback ack failed", "error", err)
	}

	action, arg := parseCallbackData(cb.Data)

	session, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.log().Error("loading session", "chat_id", chatID, "error", err)
		return
	}

	switch action {
	case string(ActionBackToStatus):
		b.resetSession(ctx, session)
		b.sendStatus(ctx, chatID)

	case string(ActionBackToSetType):
		b.setState(ctx, session, StateAddSetType)
		b.sendReply(chatID, b.machine.Prompt(StateAddSetType, session.Payload))

	case string(ActionBackToSetMAC):
		b.setState(ctx, session, StateAddSetMAC)
		b.sendReply(chatID, b.machine.Prompt(StateAddSetMAC, session.Payload))

	case string(ActionChooseType), string(ActionChooseManufacturer):
		next, payload, reply, err := b.machine.Transition(ctx, session.State, session.Payload, arg)
		if err != nil {
			b.log().Error("conversation turn failed", "chat_id", chatID, "state", session.State, "error", err)
			b.resetSession(ctx, session)
			return
		}
		session.State = next
		session.Payload = payload
		if err := b.sessions.Put(ctx, session); err != nil {
			b.log().Error("saving session", "chat_id", chatID, "error", err)
		}
		b.sendReply(chatID, reply)

	case string(ActionShowDevice), actionRefresh:
		b.sendDevice(ctx, chatID, parseID(arg))

	case string(ActionEditDevice):
		b.resetSession(ctx, session)
		b.sendEditMenu(ctx, chatID, parseID(arg))

	case actionAddDevice:
		b.startAdd(ctx, session)

	case actionTurnOn:
		b.runCommand(ctx, chatID, parseID(arg), b.commander.TurnOn)

	case actionTurnOff:
		b.runCommand(ctx, chatID, parseID(arg), b.commander.TurnOff)

	case actionDelete:
		deviceID := parseID(arg)
		if err := b.commander.DeleteDevice(ctx, deviceID); err != nil {
			b.sendText(chatID, fmt.Sprintf("Delete failed: %v", err))
			return
		}
		b.sendText(chatID, "Device deleted")
		b.sendStatus(ctx, chatID)

	case actionEditName:
		b.startEdit(ctx, session, StateEditName, parseID(arg))

	case actionEditMAC:
		b.startEdit(ctx, session, StateEditMAC, parseID(arg))

	case actionEditAddress:
		b.startEdit(ctx, session, StateEditAddress, parseID(arg))

	default:
		b.log().Debug("unhandled callback", "data", cb.Data)
	}
}

func (b *Bot) startAdd(ctx context.Context, session *Session) {
	session.State = StateAddSetName
	session.Payload = Payload{Add: &AddPayload{}}
	if err := b.sessions.Put(ctx, session); err != nil {
		b.log().Error("saving session", "chat_id", session.ChatID, "error", err)
	}
	b.sendReply(session.ChatID, b.machine.Prompt(StateAddSetName, session.Payload))
}

func (b *Bot) startEdit(ctx context.Context, session *Session, state State, deviceID int64) {
	session.State = state
	session.Payload = Payload{Edit: &EditPayload{DeviceID: deviceID}}
	if err := b.sessions.Put(ctx, session); err != nil {
		b.log().Error("saving session", "chat_id", session.ChatID, "error", err)
	}
	b.sendReply(session.ChatID, b.machine.Prompt(state, session.Payload))
}

func (b *Bot) setState(ctx context.Context, session *Session, state State) {
	session.State = state
	if err := b.sessions.Put(ctx, session); err != nil {
		b.log().Error("saving session", "chat_id", session.ChatID, "error", err)
	}
}

func (b *Bot) resetSession(ctx context.Context, session *Session) {
	session.State = StateIdle
	session.Payload = Payload{}
	if err := b.sessions.Put(ctx, session); err != nil {
		b.log().Error("saving session", "chat_id", session.ChatID, "error", err)
	}
}

func (b *Bot) runCommand(ctx context.Context, chatID, deviceID int64, cmd func(context.Context, int64) error) {
	if b.commander == nil {
		b.sendText(chatID, "Commands are not available")
		return
	}
	if err := cmd(ctx, deviceID); err != nil {
		b.sendText(chatID, fmt.Sprintf("Command failed: %v", err))
		return
	}
	b.sendDevice(ctx, chatID, deviceID)
}

func (b *Bot) sendStatus(ctx context.Context, chatID int64) {
	if b.states == nil {
		b.sendText(chatID, "Status is not available")
		return
	}

	infos, err := b.states.ListDeviceInfo(ctx)
	if err != nil {
		b.log().Error("listing device info", "error", err)
		b.sendText(chatID, "Could not load devices")
		return
	}

	var sb strings.Builder
	sb.WriteString("Devices\n")
	var rows [][]Button
	for _, info := range infos {
		fmt.Fprintf(&sb, "\n%s %s (%s)", presenceMark(info.Online), info.Device.Name, info.Device.Type)
		rows = append(rows, []Button{{
			Label:    info.Device.Name,
			Action:   ActionShowDevice,
			DeviceID: info.Device.ID,
		}})
	}
	if len(infos) == 0 {
		sb.WriteString("\nNo devices yet")
	}
	rows = append(rows, []Button{{Label: "Add device", Action: Action(actionAddDevice)}})

	b.sendReply(chatID, Reply{Text: sb.String(), Keyboard: rows})
}

func (b *Bot) sendUnknown(ctx context.Context, chatID int64) {
	if b.states == nil {
		b.sendText(chatID, "Status is not available")
		return
	}

	entries, err := b.states.UnknownDevices(ctx)
	if err != nil {
		b.log().Error("listing unknown devices", "error", err)
		b.sendText(chatID, "Could not reach the router")
		return
	}
	if len(entries) == 0 {
		b.sendText(chatID, "No unrecognised hosts on the network")
		return
	}

	var sb strings.Builder
	sb.WriteString("Unrecognised hosts\n")
	for _, entry := range entries {
		name := entry.Hostname
		if name == "" {
			name = "(no hostname)"
		}
		fmt.Fprintf(&sb, "\n%s  %s  %s", name, entry.Address, entry.MAC)
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) sendDevice(ctx context.Context, chatID, deviceID int64) {
	if b.states == nil {
		b.sendText(chatID, "Status is not available")
		return
	}

	info, err := b.states.GetDeviceInfo(ctx, deviceID)
	if err != nil {
		b.sendText(chatID, "Device not found")
		return
	}

	dev := info.Device
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", dev.Name)
	fmt.Fprintf(&sb, "Type: %s, manufacturer: %s\n", dev.Type, dev.Manufacturer)
	fmt.Fprintf(&sb, "MAC: %s\n", strValue(dev.MAC))
	fmt.Fprintf(&sb, "Address: %s\n", strValue(dev.Address))
	fmt.Fprintf(&sb, "Online: %s, power: %s", onlineWord(info.Online), info.Power)
	if dev.MatterNodeID != nil {
		fmt.Fprintf(&sb, "\nMesh node: %s", *dev.MatterNodeID)
	}

	keyboard := [][]Button{
		{
			{Label: "Turn on", Action: Action(actionTurnOn), DeviceID: deviceID},
			{Label: "Turn off", Action: Action(actionTurnOff), DeviceID: deviceID},
			{Label: "Refresh", Action: Action(actionRefresh), DeviceID: deviceID},
		},
		{
			{Label: "Edit", Action: ActionEditDevice, DeviceID: deviceID},
			{Label: "Delete", Action: Action(actionDelete), DeviceID: deviceID},
		},
		{backToStatusButton},
	}
	b.sendReply(chatID, Reply{Text: sb.String(), Keyboard: keyboard})
}

func (b *Bot) sendEditMenu(ctx context.Context, chatID, deviceID int64) {
	dev, err := b.devices.GetDevice(ctx, deviceID)
	if err != nil {
		b.sendText(chatID, "Device not found")
		return
	}

	text := fmt.Sprintf("Editing %s\nMAC: %s\nAddress: %s",
		dev.Name, strValue(dev.MAC), strValue(dev.Address))

	keyboard := [][]Button{
		{
			{Label: "Name", Action: Action(actionEditName), DeviceID: deviceID},
			{Label: "MAC", Action: Action(actionEditMAC), DeviceID: deviceID},
			{Label: "Address", Action: Action(actionEditAddress), DeviceID: deviceID},
		},
		{{Label: "Back to device", Action: ActionShowDevice, DeviceID: deviceID}},
		{backToStatusButton},
	}
	b.sendReply(chatID, Reply{Text: text, Keyboard: keyboard})
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendReply(chatID, Reply{Text: text})
}

func (b *Bot) sendReply(chatID int64, reply Reply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Keyboard) > 0 {
		msg.ReplyMarkup = buildKeyboard(reply.Keyboard)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log().Error("sending message", "chat_id", chatID, "error", err)
	}
}

func buildKeyboard(keyboard [][]Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, callbackData(btn)))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// callbackData encodes a button as "action" or "action:arg".
func callbackData(btn Button) string {
	switch {
	case btn.Value != "":
		return string(btn.Action) + ":" + btn.Value
	case btn.DeviceID != 0:
		return string(btn.Action) + ":" + strconv.FormatInt(btn.DeviceID, 10)
	default:
		return string(btn.Action)
	}
}

func parseCallbackData(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

func parseID(arg string) int64 {
	id, _ := strconv.ParseInt(arg, 10, 64)
	return id
}

func presenceMark(online bool) string {
	if online {
		return "🟢"
	}
	return "⚪"
}

func onlineWord(online bool) string {
	if online {
		return "yes"
	}
	return "no"
}

func strValue(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
