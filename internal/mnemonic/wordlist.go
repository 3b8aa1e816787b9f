package mnemonic

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tyler-smith/go-bip39/wordlists"
)

// WordListSize is the number of words in a BIP-39 word list.
const WordListSize = 2048

// minPrefixLen is the shortest user input matched by prefix. BIP-39 lists are
// built so the first four letters identify a word.
const minPrefixLen = 4

// WordList is an immutable, sorted list of 2048 words.
// It is safe for concurrent use.
type WordList struct {
	words []string
	index map[string]int
}

var (
	englishOnce sync.Once
	english     *WordList
)

// English returns the BIP-39 English word list. It is built on first use.
func English() *WordList {
	englishOnce.Do(func() {
		english = newWordList(wordlists.English)
	})
	return english
}

func newWordList(src []string) *WordList {
	if len(src) != WordListSize {
		panic(fmt.Sprintf("mnemonic: word list has %d words, want %d", len(src), WordListSize))
	}
	words := make([]string, len(src))
	copy(words, src)
	if !sort.StringsAreSorted(words) {
		panic("mnemonic: word list is not sorted")
	}
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i
	}
	return &WordList{words: words, index: index}
}

// Len returns the number of words.
func (l *WordList) Len() int {
	return len(l.words)
}

// Word returns the word at index i.
func (l *WordList) Word(i int) string {
	return l.words[i]
}

// Index returns the position of an exact word.
func (l *WordList) Index(word string) (int, bool) {
	i, ok := l.index[word]
	return i, ok
}

// Find resolves user input to a word index. Input is matched case-insensitively,
// either exactly or, when at least four characters are given, as the prefix of
// a word.
func (l *WordList) Find(userWord string) (int, bool) {
	w := strings.ToLower(userWord)
	if i, ok := l.index[w]; ok {
		return i, true
	}
	if len(w) < minPrefixLen {
		return 0, false
	}
	i := sort.SearchStrings(l.words, w)
	if i < len(l.words) && strings.HasPrefix(l.words[i], w) {
		return i, true
	}
	return 0, false
}
