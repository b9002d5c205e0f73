package lookup

import (
	"fmt"

	"github.com/energizer-project/bnetchat/internal/roster"
)

// Pair is one labelled line of user information.
type Pair struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Present renders a completed read along every path its purpose selects.
func Present(res *Result) []Pair {
	var pairs []Pair
	if res.Request.Purpose&PurposeProfile != 0 {
		pairs = append(pairs, ProfilePairs(res)...)
	}
	if res.Request.Purpose&PurposeSystem != 0 {
		pairs = append(pairs, SystemPairs(res)...)
	}
	if res.Request.Purpose&PurposeRecord != 0 {
		pairs = append(pairs, RecordPairs(res)...)
	}
	return pairs
}

// ProfilePairs renders the non-empty profile fields.
func ProfilePairs(res *Result) []Pair {
	fields := []struct{ key, label string }{
		{KeyProfileSex, "Profile sex"},
		{KeyProfileAge, "Profile age"},
		{KeyProfileLocation, "Profile location"},
		{KeyProfileDescription, "Profile description"},
	}

	var pairs []Pair
	for _, f := range fields {
		if v, ok := res.Value(f.key); ok && v != "" {
			pairs = append(pairs, Pair{Label: f.label, Value: v})
		}
	}
	if len(pairs) == 0 {
		pairs = append(pairs, Pair{Label: "Profile", Value: "No information is stored in this user's profile."})
	}
	return pairs
}

// SystemPairs renders the account times.
func SystemPairs(res *Result) []Pair {
	var pairs []Pair
	times := []struct{ key, label string }{
		{KeySystemAccountCreated, "Account creation time"},
		{KeySystemLastLogoff, "Last logoff time"},
		{KeySystemLastLogon, "Last logon time"},
	}
	for _, f := range times {
		if v, ok := res.Value(f.key); ok && v != "" {
			pairs = append(pairs, Pair{Label: f.label, Value: FormatFiletime(v)})
		}
	}
	if v, ok := res.Value(KeySystemTimeLogged); ok && v != "" {
		pairs = append(pairs, Pair{Label: "Account time logged", Value: FormatDuration(v)})
	}
	return pairs
}

var categoryNames = map[int]string{
	CategoryNormal:  "Normal",
	CategoryLadder:  "Ladder",
	2:               "Tournament",
	CategoryIronMan: "IronMan",
}

func zeroIfEmpty(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

// RecordPairs renders win/loss and rating lines for every category the
// response carries all keys of.
func RecordPairs(res *Result) []Pair {
	product := res.Request.Product
	var pairs []Pair

	for category := 0; category < 4; category++ {
		rec := RecordKeys(product, category)
		vals := make([]string, len(rec))
		complete := true
		for i, k := range rec {
			v, ok := res.Value(k)
			if !ok {
				complete = false
				break
			}
			vals[i] = v
		}
		if complete {
			last := "never"
			if vals[3] != "" {
				last = fmt.Sprintf("%s on %s", vals[4], FormatFiletime(vals[3]))
			}
			pairs = append(pairs,
				Pair{
					Label: fmt.Sprintf("%s record for %s", categoryNames[category], product.Name()),
					Value: fmt.Sprintf("%s-%s-%s", zeroIfEmpty(vals[0]), zeroIfEmpty(vals[1]), zeroIfEmpty(vals[2])),
				},
				Pair{Label: "Last game", Value: last},
			)
		}

		rating, ok1 := res.Value(recordKey(product, category, "rating"))
		high, ok2 := res.Value(recordKey(product, category, "high rating"))
		rank, ok3 := res.Value(rankKey(product, category))
		highRank, ok4 := res.Value(recordKey(product, category, "high rank"))
		if ok1 && ok2 && ok3 && ok4 {
			pairs = append(pairs,
				Pair{Label: "Rating", Value: fmt.Sprintf("%s (high: %s)", zeroIfEmpty(rating), zeroIfEmpty(high))},
				Pair{Label: "Rank", Value: fmt.Sprintf("%s (high: %s)", zeroIfEmpty(rank), zeroIfEmpty(highRank))},
			)
		}
	}
	return pairs
}

// ChannelPairs renders what the channel list knows about a member.
func ChannelPairs(user roster.ChannelUser, channelName string) []Pair {
	pairs := []Pair{
		{Label: "Current location", Value: channelName},
		{Label: "Current product", Value: user.Product().Name()},
		{Label: "Ping at logon", Value: fmt.Sprintf("%dms", user.Ping)},
		{Label: "Channel capabilities", Value: user.Capabilities()},
	}
	return append(pairs, StatsPairs(roster.DecodeStats(user.Stats))...)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// StatsPairs renders a decoded stats blob.
func StatsPairs(stats roster.Stats) []Pair {
	var pairs []Pair
	product := stats.StatsProduct().Name()

	switch s := stats.(type) {
	case roster.StarStats:
		if s.LadderRating != 0 || s.LadderRank != 0 || s.HighRating != 0 {
			pairs = append(pairs,
				Pair{Label: product + " ladder rating", Value: fmt.Sprintf("%d (high: %d)", s.LadderRating, s.HighRating)},
				Pair{Label: product + " ladder rank", Value: fmt.Sprintf("%d", s.LadderRank)},
			)
		}
		if s.Wins != 0 {
			pairs = append(pairs, Pair{Label: product + " wins", Value: fmt.Sprintf("%d", s.Wins)})
		}
		if s.Spawn {
			pairs = append(pairs, Pair{Label: "Spawned client", Value: "Yes"})
		}

	case roster.DiabloStats:
		if s.Level != 0 {
			pairs = append(pairs, Pair{Label: "Character level", Value: fmt.Sprintf("%d", s.Level)})
		}
		pairs = append(pairs,
			Pair{Label: "Character class", Value: s.ClassName()},
			Pair{Label: "Last difficulty completed", Value: s.DifficultyText()},
		)
		if s.Strength != 0 || s.Magic != 0 || s.Dexterity != 0 || s.Vitality != 0 || s.Gold != 0 {
			pairs = append(pairs,
				Pair{Label: "Character strength", Value: fmt.Sprintf("%d", s.Strength)},
				Pair{Label: "Character magic", Value: fmt.Sprintf("%d", s.Magic)},
				Pair{Label: "Character dexterity", Value: fmt.Sprintf("%d", s.Dexterity)},
				Pair{Label: "Character vitality", Value: fmt.Sprintf("%d", s.Vitality)},
				Pair{Label: "Character gold", Value: fmt.Sprintf("%d", s.Gold)},
			)
		}
		pairs = append(pairs, Pair{Label: "Spawned/shareware client", Value: yesNo(s.Spawn)})

	case roster.Diablo2Stats:
		if s.Open {
			return append(pairs, Pair{Label: "Diablo II character", Value: "an open Battle.net character"})
		}
		pairs = append(pairs,
			Pair{Label: "Diablo II realm", Value: s.Realm},
			Pair{Label: "Diablo II character", Value: s.Character},
			Pair{Label: "Character level", Value: fmt.Sprintf("%d", s.Level)},
			Pair{Label: "Character class", Value: s.ClassName()},
			Pair{Label: "Last difficulty completed", Value: s.DifficultyText()},
			Pair{Label: "Ladder character", Value: yesNo(s.Ladder())},
			Pair{Label: "Expansion character", Value: yesNo(s.Expansion())},
			Pair{Label: "Hardcore character", Value: yesNo(s.Hardcore())},
		)
		if s.Hardcore() {
			pairs = append(pairs, Pair{Label: "Dead", Value: yesNo(s.Dead())})
		}

	case roster.Warcraft3Stats:
		if s.Level != 0 {
			pairs = append(pairs, Pair{Label: "Warcraft III level", Value: fmt.Sprintf("%d", s.Level)})
		}
		if s.Clan != "" {
			pairs = append(pairs, Pair{Label: "Warcraft III clan", Value: s.Clan})
		}
	}
	return pairs
}

// WhoisPairs renders a whois answer.
func WhoisPairs(m roster.Match) []Pair {
	switch m.Kind {
	case roster.MatchWhois:
		return []Pair{
			{Label: "Current location", Value: m.Location},
			{Label: "Current product", Value: m.Product},
		}
	case roster.MatchAway:
		return []Pair{{Label: "Away", Value: m.Message}}
	case roster.MatchDND:
		return []Pair{{Label: "Do Not Disturb", Value: m.Message}}
	case roster.MatchNotLoggedOn:
		return []Pair{{Label: "Current location", Value: "offline"}}
	}
	return nil
}
