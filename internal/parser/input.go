package parser

// Input is the tagged union over upload kinds. The two variants share no
// state, only the ParseResult output contract: Tabular is handled by this
// package, FreeText by the AI-assisted path.
type Input interface {
	isInput()
}

// Tabular wraps raw spreadsheet bytes (XLSX or CSV).
type Tabular struct {
	Filename string
	Data     []byte
}

// FreeText wraps pre-extracted document text, typically from a PDF.
type FreeText struct {
	Text string
}

func (Tabular) isInput()  {}
func (FreeText) isInput() {}
