package executor

import "strconv"

// Path locates a value inside an argument tree or an output document.
// Elements are argument or field names (string) and array indexes (int).
type Path []PathElement

type PathElement any

// String renders the path as "a.b[1].c".
func (p Path) String() string {
	result := ""
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += "[" + strconv.Itoa(v) + "]"
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}
