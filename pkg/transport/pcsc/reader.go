package pcsc

import "fmt"

// selectReader picks name from readers, or the first reader when name is empty.
func selectReader(readers []string, name string) (string, error) {
	if len(readers) == 0 {
		return "", fmt.Errorf("no pc/sc readers found")
	}
	if name == "" {
		return readers[0], nil
	}
	for _, r := range readers {
		if r == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("reader name not found: %q", name)
}
