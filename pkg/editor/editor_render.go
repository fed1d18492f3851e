package editor

import (
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/shared"
)

// gutterWidth is the character width of the row-number gutter.
const gutterWidth = 6

// dataRows is how many sheet rows fit on screen beside the header bar
// and the status line.
func (e *Editor) dataRows() int {
	n := e.screenRows - 2
	if n < 1 {
		n = 1
	}
	return n
}

// visCols is how many columns fit beside the row-number gutter.
func (e *Editor) visCols() int {
	n := (e.screenCols - gutterWidth) / (e.colWidth + 1)
	if n < 1 {
		n = 1
	}
	return n
}

// adjustScroll moves the viewport so the cursor stays visible.
func (e *Editor) adjustScroll() {
	if e.row < e.scrollRow {
		e.scrollRow = e.row
	}
	if e.row >= e.scrollRow+e.dataRows() {
		e.scrollRow = e.row - e.dataRows() + 1
	}
	if e.col < e.scrollCol {
		e.scrollCol = e.col
	}
	if e.col >= e.scrollCol+e.visCols() {
		e.scrollCol = e.col - e.visCols() + 1
	}
	if e.scrollRow < 0 {
		e.scrollRow = 0
	}
	if e.scrollCol < 0 {
		e.scrollCol = 0
	}
}

// Render sends the visible part of the sheet to the client.
func (e *Editor) Render() {
	if !e.active {
		return
	}

	rowEnd := e.scrollRow + e.dataRows()
	if rowEnd > e.sheet.Rows() {
		rowEnd = e.sheet.Rows()
	}
	colEnd := e.scrollCol + e.visCols()
	if colEnd > e.sheet.Cols() {
		colEnd = e.sheet.Cols()
	}

	cells := make([][]string, 0, rowEnd-e.scrollRow)
	for r := e.scrollRow; r < rowEnd; r++ {
		line := make([]string, 0, colEnd-e.scrollCol)
		for c := e.scrollCol; c < colEnd; c++ {
			line = append(line, e.sheet.DisplayCell(r, c))
		}
		cells = append(cells, line)
	}

	headers := make([]string, 0, colEnd-e.scrollCol)
	widths := make([]int, 0, colEnd-e.scrollCol)
	for c := e.scrollCol; c < colEnd; c++ {
		headers = append(headers, e.sheet.Header(c))
		widths = append(widths, e.colWidth)
	}

	msg := shared.Message{
		Type:      shared.MessageTypeRender,
		SessionID: e.sessionID,
		Cells:     cells,
		Headers:   headers,
		ColWidths: widths,
		RowStart:  e.scrollRow + 1,
		ColStart:  e.scrollCol + 1,
		CursorRow: e.row + 1,
		CursorCol: e.col + 1,
		Mode:      e.mode.String(),
		SheetName: e.sheet.Name(),
		Modified:  e.sheet.Dirty(),
	}
	if e.mode != ModeNormal {
		msg.EditBuffer = string(e.buffer)
		msg.EditCursor = e.caret
	}
	e.send(msg)
}

// sendMode tells the client the input mode changed.
func (e *Editor) sendMode() {
	e.send(shared.Message{
		Type:      shared.MessageTypeMode,
		SessionID: e.sessionID,
		Mode:      e.mode.String(),
	})
}

// sendStatus puts a line of text in the client's status area.
func (e *Editor) sendStatus(text string) {
	e.send(shared.Message{
		Type:      shared.MessageTypeStatus,
		SessionID: e.sessionID,
		Content:   text,
	})
}

// errStatus reports a failed command in the status area.
func (e *Editor) errStatus(text string) {
	e.send(shared.Message{
		Type:      shared.MessageTypeError,
		SessionID: e.sessionID,
		Content:   text,
	})
}

// sendText sends plain terminal text outside the grid.
func (e *Editor) sendText(text string) {
	e.send(shared.Message{
		Type:      shared.MessageTypeText,
		SessionID: e.sessionID,
		Content:   text,
	})
}

// bell asks the client for an audible beep.
func (e *Editor) bell() {
	e.send(shared.Message{
		Type:      shared.MessageTypeBell,
		SessionID: e.sessionID,
	})
}

// send delivers a message without blocking the key loop. A slow or
// gone client loses frames rather than stalling input.
func (e *Editor) send(msg shared.Message) {
	if e.out == nil {
		return
	}
	select {
	case e.out <- msg:
	default:
		logger.Debug(logger.AreaEditor, "Output channel full for session %s, message type %d dropped", e.sessionID, msg.Type)
	}
}

// Output returns the channel carrying messages for the client.
func (e *Editor) Output() <-chan shared.Message {
	return e.out
}
