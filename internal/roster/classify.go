package roster

import "regexp"

// MatchKind identifies which classifier claimed a piece of server text.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchMutualFriend
	MatchWhois
	MatchAway
	MatchDND
	MatchAwayToggle
	MatchDNDToggle
	MatchUnavailable
	MatchNotLoggedOn
)

var matchKindNames = map[MatchKind]string{
	MatchNone:         "none",
	MatchMutualFriend: "mutual_friend",
	MatchWhois:        "whois",
	MatchAway:         "away",
	MatchDND:          "dnd",
	MatchAwayToggle:   "away_toggle",
	MatchDNDToggle:    "dnd_toggle",
	MatchUnavailable:  "unavailable",
	MatchNotLoggedOn:  "not_logged_on",
}

func (k MatchKind) String() string {
	if s, ok := matchKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Match is the structured form of a classified server message. Which fields
// are set depends on Kind. An empty User on an away or DND match means the
// message is about the session's own account.
type Match struct {
	Kind     MatchKind
	User     string
	Product  string
	Location string
	Message  string
	// State is "still", "now" or "no longer" for away toggles and
	// "engaged" or "cancelled" for DND toggles.
	State string
}

// Classifier recognises one family of server messages.
type Classifier interface {
	TryMatch(text string) (Match, bool)
}

type patternClassifier struct {
	re    *regexp.Regexp
	build func(groups []string) Match
}

func (c patternClassifier) TryMatch(text string) (Match, bool) {
	groups := c.re.FindStringSubmatch(text)
	if groups == nil {
		return Match{}, false
	}
	return c.build(groups), true
}

type exactClassifier struct {
	text  string
	match Match
}

func (c exactClassifier) TryMatch(text string) (Match, bool) {
	if text != c.text {
		return Match{}, false
	}
	return c.match, true
}

// NotLoggedOnText is the error the server sends when a whisper or whois target is offline.
const NotLoggedOnText = "That user is not logged on."

// Classifiers are evaluated in this order and the first match wins.
var Classifiers = []Classifier{
	patternClassifier{
		re: regexp.MustCompile(`Your friend (\S+) (?:has entered Battle\.net|has exited Battle\.net|entered a .+ game called .+)\.`),
		build: func(g []string) Match {
			return Match{Kind: MatchMutualFriend, User: g[1]}
		},
	},
	patternClassifier{
		re: regexp.MustCompile(`(?:You are |)(\S+)(?:,| is) using (.+) in (.+)\.`),
		build: func(g []string) Match {
			return Match{Kind: MatchWhois, User: g[1], Product: g[2], Location: g[3]}
		},
	},
	patternClassifier{
		re: regexp.MustCompile(`(?:You are|(\S+) is) away \((.+)\)`),
		build: func(g []string) Match {
			return Match{Kind: MatchAway, User: g[1], Message: g[2]}
		},
	},
	patternClassifier{
		re: regexp.MustCompile(`(?:You are|(\S+) is) refusing messages \((.+)\)`),
		build: func(g []string) Match {
			return Match{Kind: MatchDND, User: g[1], Message: g[2]}
		},
	},
	patternClassifier{
		re: regexp.MustCompile(`You are (still|now|no longer) marked as (?:being |)away\.`),
		build: func(g []string) Match {
			return Match{Kind: MatchAwayToggle, State: g[1]}
		},
	},
	patternClassifier{
		re: regexp.MustCompile(`Do Not Disturb mode (engaged|cancelled)\.`),
		build: func(g []string) Match {
			return Match{Kind: MatchDNDToggle, State: g[1]}
		},
	},
	patternClassifier{
		re: regexp.MustCompile(`(\S+) is unavailable \((.+)\)`),
		build: func(g []string) Match {
			return Match{Kind: MatchUnavailable, User: g[1], Message: g[2]}
		},
	},
	exactClassifier{
		text:  NotLoggedOnText,
		match: Match{Kind: MatchNotLoggedOn},
	},
}

// Classify runs the classifiers in order over text.
func Classify(text string) (Match, bool) {
	if text == "" {
		return Match{}, false
	}
	for _, c := range Classifiers {
		if m, ok := c.TryMatch(text); ok {
			return m, true
		}
	}
	return Match{}, false
}
