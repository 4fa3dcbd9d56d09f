package domain

// ParseStatus is the outcome recorded in a ParseResult.
type ParseStatus string

const (
	ParseStatusSuccess  ParseStatus = "Success"
	ParseStatusFailed   ParseStatus = "Failed"
	ParseStatusFinished ParseStatus = "Finished"
)

// ParseResult is the per-file record produced by the parse coordinator.
type ParseResult struct {
	FileName string      `json:"file_name"`
	Status   ParseStatus `json:"status"`
	Error    string      `json:"error"`
	Text     string      `json:"text"`
}

// ParseSuccess builds a Success record.
func ParseSuccess(fileName, text string) ParseResult {
	return ParseResult{FileName: fileName, Status: ParseStatusSuccess, Text: text}
}

// ParseFailure builds a Failed record carrying err's message.
func ParseFailure(fileName string, err error) ParseResult {
	return ParseResult{FileName: fileName, Status: ParseStatusFailed, Error: err.Error()}
}

// FinishedSentinel terminates a batch stream.
func FinishedSentinel() ParseResult {
	return ParseResult{Status: ParseStatusFinished}
}

// IsSentinel reports whether r is the batch terminator.
func (r ParseResult) IsSentinel() bool {
	return r.Status == ParseStatusFinished
}
