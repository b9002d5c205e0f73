// Package lookup correlates user-data reads with their responses and turns
// the returned values, whois text and channel member data into the label
// and value pairs shown for a user.
package lookup

import (
	"fmt"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// Purpose flags say which presentation paths a response feeds.
type Purpose uint8

const (
	PurposeProfile Purpose = 1 << iota
	PurposeSystem
	PurposeRecord
)

// Profile keys, readable for any account and writable for one's own.
const (
	KeyProfileSex         = `profile\sex`
	KeyProfileAge         = `profile\age`
	KeyProfileLocation    = `profile\location`
	KeyProfileDescription = `profile\description`
)

// System keys, only readable for one's own account.
const (
	KeySystemAccountCreated = `System\Account Created`
	KeySystemLastLogoff     = `System\Last Logoff`
	KeySystemLastLogon      = `System\Last Logon`
	KeySystemTimeLogged     = `System\Time Logged`
)

// ProfileKeys are the profile fields in request order.
var ProfileKeys = []string{KeyProfileSex, KeyProfileAge, KeyProfileLocation, KeyProfileDescription}

// SystemKeys are the account system fields in request order.
var SystemKeys = []string{KeySystemAccountCreated, KeySystemLastLogoff, KeySystemLastLogon, KeySystemTimeLogged}

// Ladder record categories.
const (
	CategoryNormal  = 0
	CategoryLadder  = 1
	CategoryIronMan = 3
)

func recordKey(product protocol.Product, category int, field string) string {
	return fmt.Sprintf(`Record\%s\%d\%s`, product.ID(), category, field)
}

func rankKey(product protocol.Product, category int) string {
	return fmt.Sprintf(`DynKey\%s\%d\rank`, product.ID(), category)
}

// RecordKeys returns the win/loss keys of one record category.
func RecordKeys(product protocol.Product, category int) []string {
	return []string{
		recordKey(product, category, "wins"),
		recordKey(product, category, "losses"),
		recordKey(product, category, "disconnects"),
		recordKey(product, category, "last game"),
		recordKey(product, category, "last game result"),
	}
}

// LadderKeys returns RecordKeys plus the rating and rank keys of a ladder category.
func LadderKeys(product protocol.Product, category int) []string {
	return append(RecordKeys(product, category),
		recordKey(product, category, "rating"),
		recordKey(product, category, "high rating"),
		rankKey(product, category),
		recordKey(product, category, "high rank"),
	)
}

// KeySet returns the keys and purposes of a user information read. System
// fields are only requested for the session's own account, and records only
// for products that keep them.
func KeySet(product protocol.Product, self bool) ([]string, Purpose) {
	keys := append([]string(nil), ProfileKeys...)
	purpose := PurposeProfile

	if self {
		keys = append(keys, SystemKeys...)
		purpose |= PurposeSystem
	}

	records := product.Records()
	if records&protocol.RecordNormal != 0 {
		keys = append(keys, RecordKeys(product, CategoryNormal)...)
	}
	if records&protocol.RecordLadder != 0 {
		keys = append(keys, LadderKeys(product, CategoryLadder)...)
	}
	if records&protocol.RecordIronMan != 0 {
		keys = append(keys, LadderKeys(product, CategoryIronMan)...)
	}
	if records != protocol.RecordNone {
		purpose |= PurposeRecord
	}

	return keys, purpose
}
