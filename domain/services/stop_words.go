package services

// DefaultStopWords returns the common English stop words removed from keyword
// sets. Words of four characters or fewer can never survive the length filter
// but are kept so a lower minimum length still behaves.
func DefaultStopWords() map[string]bool {
	words := []string{
		// articles, pronouns, determiners
		"a", "an", "the", "i", "me", "my", "we", "us", "our", "ours", "you",
		"your", "yours", "he", "him", "his", "she", "her", "hers", "it", "its",
		"they", "them", "their", "theirs", "this", "that", "these", "those",
		"what", "which", "whom", "whose", "who", "itself", "myself", "yourself",
		"himself", "herself", "ourselves", "themselves", "yourselves",
		// auxiliaries and frequent verbs
		"am", "is", "are", "was", "were", "be", "been", "being", "have", "has",
		"had", "having", "do", "does", "did", "doing", "will", "would", "shall",
		"should", "can", "could", "may", "might", "must", "ought",
		// prepositions and conjunctions
		"and", "but", "or", "nor", "so", "yet", "for", "of", "to", "in", "on",
		"at", "by", "with", "from", "into", "onto", "upon", "about", "above",
		"below", "after", "before", "again", "against", "among", "around",
		"because", "between", "during", "through", "throughout", "under",
		"until", "unless", "while", "within", "without", "toward", "towards",
		"whether", "although", "though", "since", "where", "when", "whenever",
		"wherever", "there", "here", "then", "than", "over", "off", "out", "up",
		"down", "if", "as",
		// quantifiers and filler adverbs
		"all", "any", "both", "each", "every", "either", "neither", "few",
		"more", "most", "other", "others", "another", "some", "such", "only",
		"own", "same", "very", "just", "also", "too", "not", "no", "now",
		"ever", "never", "always", "often", "quite", "rather", "really",
		"almost", "already", "still", "much", "many", "several", "various",
		"however", "therefore", "thus", "hence", "otherwise", "instead",
		"perhaps", "maybe", "indeed", "else", "whereas", "whatever",
		"whichever", "anything", "everything", "something", "nothing",
		"anyone", "everyone", "someone", "nobody", "things", "thing",
	}

	stopWords := make(map[string]bool, len(words))
	for _, w := range words {
		stopWords[w] = true
	}
	return stopWords
}
