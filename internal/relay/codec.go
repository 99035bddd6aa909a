package relay

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	apperrors "github.com/iamwavecut/ngrelay/internal/errors"
)

// Correlation tokens have the fixed grammar
//
//	token := "<ID:" int "><MID:" int ">"
//	int   := "0" | ["-"] nonzero-digit {digit}
//
// where ID is the originating user and MID the message the user sent. The angle brackets keep
// the token self-delimiting, so it can be appended to any human-readable text.
const (
	userKey    = "ID"
	messageKey = "MID"
)

var tokenPattern = regexp.MustCompile(`<` + userKey + `:(-?\d+)><` + messageKey + `:(-?\d+)>`)

// Encode returns the correlation token for a user message.
func Encode(userID int64, messageID int) string {
	return fmt.Sprintf("<%s:%d><%s:%d>", userKey, userID, messageKey, messageID)
}

// Decode extracts the pair encoded into text by Encode, wherever the token sits.
// It fails with ErrCorrelationNotFound when text holds no well-formed token, or holds tokens
// for different pairs: an ambiguous text is never resolved to a guess.
func Decode(text string) (userID int64, messageID int, err error) {
	found := false
	for _, match := range tokenPattern.FindAllStringSubmatch(text, -1) {
		u, m, ok := parsePair(match[1], match[2])
		if !ok {
			continue
		}
		if found && (u != userID || m != messageID) {
			return 0, 0, errors.Wrap(apperrors.ErrCorrelationNotFound, "ambiguous correlation tokens")
		}
		userID, messageID, found = u, m, true
	}
	if !found {
		return 0, 0, apperrors.ErrCorrelationNotFound
	}
	return userID, messageID, nil
}

func parsePair(rawUser, rawMessage string) (int64, int, bool) {
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil || strconv.FormatInt(userID, 10) != rawUser {
		return 0, 0, false
	}
	messageID, err := strconv.Atoi(rawMessage)
	if err != nil || strconv.Itoa(messageID) != rawMessage {
		return 0, 0, false
	}
	return userID, messageID, true
}
