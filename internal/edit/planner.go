package edit

import "sort"

// Plan orders one file's edits for application:
//   - a delete_file edit wins outright and is returned alone
//   - deletes come first, highest line first
//   - everything else follows in input order
//
// The input slice is not modified.
func Plan(edits []Edit) []Edit {
	for _, e := range edits {
		if e.Action == ActionDeleteFile {
			return []Edit{e}
		}
	}

	deletes := make([]Edit, 0, len(edits))
	others := make([]Edit, 0, len(edits))
	for _, e := range edits {
		if e.Action == ActionDelete {
			deletes = append(deletes, e)
		} else {
			others = append(others, e)
		}
	}

	sort.SliceStable(deletes, func(i, j int) bool {
		return deletes[i].Line > deletes[j].Line
	})

	return append(deletes, others...)
}

// DeletesFile reports whether a planned list removes the whole file.
func DeletesFile(planned []Edit) bool {
	return len(planned) > 0 && planned[0].Action == ActionDeleteFile
}
