package query

// Style names a visual theme for fallback phrases and query suffixes.
type Style string

const (
	StyleGeneral   Style = "general"
	StyleCinematic Style = "cinematic"
	StyleNature    Style = "nature"
	StyleTech      Style = "tech"
)

// Tables holds the data the generator draws on.
type Tables struct {
	// Phrases maps a style to its fallback queries. StyleGeneral must be present.
	Phrases map[Style][]string
	// Stopwords are dropped during keyword extraction. Keys are lower case.
	Stopwords map[string]struct{}
}

// DefaultTables returns the built-in phrase table and English stopword list.
func DefaultTables() Tables {
	stop := make(map[string]struct{}, len(englishStopwords))
	for _, w := range englishStopwords {
		stop[w] = struct{}{}
	}
	return Tables{
		Phrases: map[Style][]string{
			StyleCinematic: {"cinematic b-roll", "slow motion city", "moody landscape", "ocean waves", "aerial skyline"},
			StyleNature:    {"forest canopy", "ocean reef", "mountain sunrise", "river flow", "desert dunes"},
			StyleTech:      {"data center", "robot arm", "circuit board macro", "coding close-up", "neon city"},
			StyleGeneral:   {"city b-roll", "people walking", "clouds timelapse", "street night lights", "abstract background"},
		},
		Stopwords: stop,
	}
}

var englishStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's",
	"its", "itself", "they", "them", "their", "theirs", "themselves", "what",
	"which", "who", "whom", "this", "that", "that'll", "these", "those", "am", "is",
	"are", "was", "were", "be", "been", "being", "have", "has", "had", "having",
	"do", "does", "did", "doing", "a", "an", "the", "and", "but", "if", "or",
	"because", "as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after", "above",
	"below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why",
	"how", "all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too", "very",
	"s", "t", "can", "will", "just", "don", "don't", "should", "should've", "now",
	"d", "ll", "m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn",
	"couldn't", "didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn",
	"hasn't", "haven", "haven't", "isn", "isn't", "ma", "mightn", "mightn't",
	"mustn", "mustn't", "needn", "needn't", "shan", "shan't", "shouldn",
	"shouldn't", "wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn",
	"wouldn't",
}
