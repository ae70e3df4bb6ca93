package textutil

// stopwords holds folded Portuguese and English function words
var stopwords = func() map[string]bool {
	list := []string{
		// Portuguese
		"a", "ao", "aos", "as", "ate", "com", "como", "da", "das", "de", "dela", "dele", "deles",
		"depois", "do", "dos", "e", "ela", "elas", "ele", "eles", "em", "entre", "era", "essa",
		"essas", "esse", "esses", "esta", "estas", "este", "estes", "eu", "foi", "foram", "ha",
		"isso", "isto", "ja", "lhe", "lhes", "mais", "mas", "me", "mesmo", "meu", "minha", "muito",
		"na", "nas", "nem", "no", "nos", "nossa", "nosso", "num", "numa", "o", "os", "ou", "para",
		"pela", "pelas", "pelo", "pelos", "por", "qual", "quando", "que", "quem", "se", "sem",
		"ser", "seu", "seus", "so", "sua", "suas", "tambem", "te", "tem", "ter", "um", "uma",
		"umas", "uns", "voce", "sao", "e", "sobre", "ainda", "assim", "porque", "onde", "cada",
		"esta", "estao", "seja", "sido", "sendo", "tinha", "tem", "tal",
		// English
		"the", "an", "and", "or", "but", "of", "to", "in", "on", "at", "by", "for", "with",
		"from", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this",
		"that", "these", "those", "he", "she", "they", "them", "his", "her", "their", "we", "our",
		"you", "your", "i", "me", "my", "not", "no", "so", "than", "then", "there", "which",
		"who", "whom", "what", "when", "where", "while", "has", "have", "had", "do", "does",
		"did", "will", "would", "can", "could", "should", "may", "might", "also", "into", "about",
	}
	m := make(map[string]bool, len(list))
	for _, w := range list {
		m[w] = true
	}
	return m
}()

// IsStopword reports whether a folded word is a function word
func IsStopword(word string) bool {
	return stopwords[word]
}
