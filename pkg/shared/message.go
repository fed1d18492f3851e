package shared

// MessageType identifies a websocket message. The numeric values are
// mirrored by the frontend (retrosheet.js MESSAGE_TYPE_MAP), so they
// must not be reordered.
type MessageType int

const (
	MessageTypeText        MessageType = 0  // plain text output (banners, command echo)
	MessageTypeClear       MessageType = 1  // clear the screen
	MessageTypeBell        MessageType = 2  // terminal bell, rings on rejected input
	MessageTypeRender      MessageType = 3  // sheet render frame
	MessageTypeStatus      MessageType = 4  // status line update
	MessageTypeMode        MessageType = 5  // editor mode change ("normal", "insert", "command")
	MessageTypeSession     MessageType = 6  // session id handover after connect
	MessageTypeError       MessageType = 7  // error text for the status line
	MessageTypeKey         MessageType = 8  // key event, client to server
	MessageTypeResize      MessageType = 9  // viewport size, client to server
	MessageTypeAuthRefresh MessageType = 10 // auth token refresh required
)

// Message is the flat envelope both directions of the websocket speak.
// Only the fields for the given Type are set; everything else stays at
// its zero value and is dropped from the JSON.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`

	// For SESSION
	SessionID string `json:"sessionId,omitempty"`

	// For MODE
	Mode string `json:"mode,omitempty"`

	// For RENDER: the visible window of the sheet, already formatted
	// for display. RowStart/ColStart are the 1-based sheet coordinates
	// of the top-left visible cell.
	Cells     [][]string `json:"cells,omitempty"`
	Headers   []string   `json:"headers,omitempty"`
	ColWidths []int      `json:"colWidths,omitempty"`
	RowStart  int        `json:"rowStart,omitempty"`
	ColStart  int        `json:"colStart,omitempty"`
	CursorRow int        `json:"cursorRow,omitempty"`
	CursorCol int        `json:"cursorCol,omitempty"`

	// For RENDER while editing: the cell or command buffer under
	// construction and the caret position inside it.
	EditBuffer string `json:"editBuffer,omitempty"`
	EditCursor int    `json:"editCursor,omitempty"`

	// For STATUS
	SheetName string `json:"sheetName,omitempty"`
	Modified  bool   `json:"modified,omitempty"`

	// For KEY, client to server. Key carries the key name ("h",
	// "Enter", "Escape", "ArrowLeft", ...); printable keys arrive as
	// themselves.
	Key string `json:"key,omitempty"`

	// For RESIZE, client to server.
	Rows int `json:"rows,omitempty"`
	Cols int `json:"cols,omitempty"`
}
