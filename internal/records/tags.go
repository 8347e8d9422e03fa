package records

import "strings"

// TagFilter is a composable boolean filter over stored tags. Scalar entries
// match by equality; the reserved combinator keys "$and" and "$or" take a
// []TagFilter of clauses and "$not" takes a nested TagFilter.
type TagFilter map[string]any

// TagMap builds the bare-name to stored-name mapping for a declared tag name
// set. Stored names may carry the plaintext marker; bare names never do.
func TagMap(tagNames []string) map[string]string {
	m := make(map[string]string, len(tagNames))
	for _, name := range tagNames {
		m[strings.TrimPrefix(name, PlaintextPrefix)] = name
	}
	return m
}

// StripTagPrefix strips the plaintext marker from stored tag names. It is the
// inverse of the prefixing applied when tags are written; strip(prefix(tags))
// must equal tags for any tag set.
func StripTagPrefix(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[strings.TrimPrefix(k, PlaintextPrefix)] = v
	}
	return out
}

// PrefixTagFilter translates a bare-named tag filter into its stored-name
// form, recursing through the $and/$or/$not combinators without altering the
// filter's structure.
func PrefixTagFilter(filter TagFilter, tagMap map[string]string) TagFilter {
	if filter == nil {
		return nil
	}
	out := make(TagFilter, len(filter))
	for k, v := range filter {
		switch k {
		case "$and", "$or":
			if clauses, ok := asFilterList(v); ok {
				prefixed := make([]TagFilter, len(clauses))
				for i, clause := range clauses {
					prefixed[i] = PrefixTagFilter(clause, tagMap)
				}
				out[k] = prefixed
				continue
			}
		case "$not":
			if clause, ok := asFilter(v); ok {
				out[k] = PrefixTagFilter(clause, tagMap)
				continue
			}
		}
		if stored, ok := tagMap[k]; ok {
			out[stored] = v
		} else {
			out[k] = v
		}
	}
	return out
}

func asFilter(v any) (TagFilter, bool) {
	switch f := v.(type) {
	case TagFilter:
		return f, true
	case map[string]any:
		return TagFilter(f), true
	}
	return nil, false
}

func asFilterList(v any) ([]TagFilter, bool) {
	switch list := v.(type) {
	case []TagFilter:
		return list, true
	case []map[string]any:
		out := make([]TagFilter, len(list))
		for i, f := range list {
			out[i] = TagFilter(f)
		}
		return out, true
	case []any:
		out := make([]TagFilter, 0, len(list))
		for _, e := range list {
			f, ok := asFilter(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}
