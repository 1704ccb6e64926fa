package plan

// SpreadStrings expands the "..." placeholder in left with the contents of
// right. User config uses this to extend a generated list instead of
// replacing it. A nil left keeps right as-is.
func SpreadStrings(left []string, right []string) []string {
	if left == nil {
		return right
	}

	result := make([]string, 0, len(left)+len(right))
	for _, val := range left {
		if val == "..." {
			result = append(result, right...)
			continue
		}
		result = append(result, val)
	}
	return result
}
