package main

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ===========================================================================
// bAbI DATASET
// ===========================================================================
//
// The bAbI tasks are a synthetic reading-comprehension benchmark: short
// stories of numbered facts, interleaved with questions whose answers are
// single vocabulary words.
//
// File format (one task, one split per file):
//
//   1 Mary moved to the bathroom.
//   2 John went to the hallway.
//   3 Where is Mary? 	bathroom	1
//   4 Daniel went back to the hallway.
//   ...
//
// A line number of 1 starts a new story. Question lines carry three
// tab-separated fields: the question, the answer, and the line numbers of
// the supporting facts.
//
// Reference:
// - Weston et al., "Towards AI-Complete Question Answering: A Set of
//   Prerequisite Toy Tasks", http://arxiv.org/abs/1502.05698
// ===========================================================================

// DatasetURL is the canonical location of the bAbI v1.2 archive.
const DatasetURL = "https://s3.amazonaws.com/text-datasets/babi_tasks_1-20_v1-2.tar.gz"

// DatasetArchive is the file name the archive is stored under in the data dir.
const DatasetArchive = "babi-tasks-v1-2.tar.gz"

// Tasks maps short task names to their member path pattern inside the
// archive. The %s slot is "train" or "test".
var Tasks = map[string]string{
	// QA1 with 10,000 samples
	"qa1": "tasks_1-20_v1-2/en-10k/qa1_single-supporting-fact_%s.txt",
	// QA2 with 10,000 samples
	"qa2": "tasks_1-20_v1-2/en-10k/qa2_two-supporting-facts_%s.txt",
}

// Example is one QA instance: a story (flattened or per-sentence tokens),
// a tokenized question, and a single-word answer.
//
// Examples are immutable after construction.
type Example struct {
	Story    []string
	Question []string
	Answer   string
}

// wordRe matches a run of word characters or a run of punctuation, so
// "apple." tokenizes to ["apple", "."].
var wordRe = regexp.MustCompile(`\w+|[^\w\s]+`)

// Tokenize returns the tokens of a sentence, keeping punctuation as
// separate tokens.
//
//	Tokenize("Bob dropped the apple.") = ["Bob", "dropped", "the", "apple", "."]
func Tokenize(sent string) []string {
	return wordRe.FindAllString(sent, -1)
}

// parsedStory is an intermediate record: the story as per-sentence token
// slices, before flattening.
type parsedStory struct {
	story    [][]string
	question []string
	answer   string
}

// ParseStories parses the bAbI flat-file format.
//
// If onlySupporting is true, only the sentences flagged as supporting the
// answer are kept in each example's story; otherwise every non-empty
// sentence seen so far is kept. After each question an empty placeholder
// is appended so that supporting-fact line numbers keep lining up with
// story positions.
func ParseStories(r io.Reader, onlySupporting bool) ([]parsedStory, error) {
	var data []parsedStory
	var story [][]string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("babi: line %d: missing line number: %q", lineNo, line)
		}
		nid, err := strconv.Atoi(line[:sp])
		if err != nil {
			return nil, fmt.Errorf("babi: line %d: bad line number: %w", lineNo, err)
		}
		rest := line[sp+1:]

		if nid == 1 {
			story = nil
		}

		if strings.ContainsRune(rest, '\t') {
			fields := strings.Split(rest, "\t")
			if len(fields) < 3 {
				return nil, fmt.Errorf("babi: line %d: malformed question line: %q", lineNo, line)
			}
			question := Tokenize(fields[0])
			answer := strings.TrimSpace(fields[1])

			var substory [][]string
			if onlySupporting {
				for _, s := range strings.Fields(fields[2]) {
					idx, err := strconv.Atoi(s)
					if err != nil {
						return nil, fmt.Errorf("babi: line %d: bad supporting fact id: %w", lineNo, err)
					}
					if idx < 1 || idx > len(story) {
						return nil, fmt.Errorf("babi: line %d: supporting fact %d out of range", lineNo, idx)
					}
					substory = append(substory, story[idx-1])
				}
			} else {
				for _, sent := range story {
					if len(sent) > 0 {
						substory = append(substory, sent)
					}
				}
			}

			data = append(data, parsedStory{story: substory, question: question, answer: answer})

			// Placeholder keeps fact numbering aligned after a question.
			story = append(story, nil)
		} else {
			story = append(story, Tokenize(rest))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("babi: reading stories: %w", err)
	}

	return data, nil
}

// ReadStories parses the reader and flattens each story into a single
// token sequence. Stories longer than maxLength tokens are discarded;
// maxLength <= 0 keeps everything.
func ReadStories(r io.Reader, onlySupporting bool, maxLength int) ([]Example, error) {
	parsed, err := ParseStories(r, onlySupporting)
	if err != nil {
		return nil, err
	}

	examples := make([]Example, 0, len(parsed))
	for _, p := range parsed {
		var flat []string
		for _, sent := range p.story {
			flat = append(flat, sent...)
		}
		if maxLength > 0 && len(flat) >= maxLength {
			continue
		}
		examples = append(examples, Example{Story: flat, Question: p.question, Answer: p.answer})
	}

	return examples, nil
}

// FetchDataset makes sure the bAbI archive exists under dataDir and
// returns its path. Download is best-effort: on failure the error carries
// the manual-download instructions.
func FetchDataset(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("babi: creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, DatasetArchive)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	fmt.Printf("Downloading bAbI dataset to %s...\n", path)
	if err := download(DatasetURL, path); err != nil {
		return "", fmt.Errorf("babi: error downloading dataset, please download it manually:\n"+
			"  $ wget http://www.thespermwhale.com/jaseweston/babi/tasks_1-20_v1-2.tar.gz\n"+
			"  $ mv tasks_1-20_v1-2.tar.gz %s\n"+
			"underlying error: %w", path, err)
	}

	return path, nil
}

func download(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	// Write to a temp file first so a partial download never looks like a
	// complete archive.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".babi-download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dest)
}

// OpenTask reads one split ("train" or "test") of a named task out of the
// tar.gz archive and returns its parsed, flattened examples.
func OpenTask(archivePath, task, split string, onlySupporting bool, maxLength int) ([]Example, error) {
	pattern, ok := Tasks[task]
	if !ok {
		return nil, fmt.Errorf("babi: unknown task %q (have: %s)", task, strings.Join(taskNames(), ", "))
	}
	member := fmt.Sprintf(pattern, split)

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("babi: opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("babi: reading gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("babi: reading tar: %w", err)
		}
		if hdr.Name == member || strings.TrimPrefix(hdr.Name, "./") == member {
			return ReadStories(tr, onlySupporting, maxLength)
		}
	}

	return nil, fmt.Errorf("babi: member %q not found in %s", member, archivePath)
}

func taskNames() []string {
	names := make([]string, 0, len(Tasks))
	for name := range Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
