package geminiserver

import "strconv"

// Status is a two digit Gemini status code.
type Status int

// Status codes written by this package.
const (
	StatusInput               Status = 10
	StatusSensitiveInput      Status = 11
	StatusSuccess             Status = 20
	StatusRedirectTemporary   Status = 30
	StatusRedirectPermanent   Status = 31
	StatusTemporaryFailure    Status = 40
	StatusSlowDown            Status = 44
	StatusNotFound            Status = 51
	StatusProxyRequestRefused Status = 53
	StatusBadRequest          Status = 59
)

func (s Status) String() string {
	return strconv.Itoa(int(s))
}

// Class returns the first digit of the status (1 input, 2 success,
// 3 redirect, 4 temporary failure, 5 permanent failure, 6 client cert).
func (s Status) Class() int {
	return int(s) / 10
}
