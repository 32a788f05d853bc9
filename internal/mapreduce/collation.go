package mapreduce

import "sort"

// typeRank orders the CouchDB collation categories:
// null < false < true < numbers < strings < arrays < objects.
func typeRank(v interface{}) int {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if !x {
			return 1
		}
		return 2
	case int, int32, int64, float32, float64:
		return 3
	case string:
		return 4
	case []interface{}:
		return 5
	case map[string]interface{}:
		return 6
	default:
		return 0
	}
}

// CompareKeys implements a total order over emitted keys. Values of
// different collation categories compare by category; within numbers,
// an Int32 and a Double compare as IEEE-754 doubles — there is no
// separate "integer" rank, so 2 and 2.0 collate equal. Strings compare
// byte-wise. Arrays and
// objects compare element-wise / key-wise, recursing into CompareKeys,
// with the shorter/fewer-keyed value sorting first when one is a
// prefix of the other.
func CompareKeys(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0, 1, 2:
		return 0
	case 3:
		return compareFloat(toFloat(a), toFloat(b))
	case 4:
		as, bs := a.(string), b.(string)
		if as < bs {
			return -1
		}
		if as > bs {
			return 1
		}
		return 0
	case 5:
		return compareArrays(a.([]interface{}), b.([]interface{}))
	case 6:
		return compareObjects(a.(map[string]interface{}), b.(map[string]interface{}))
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

func compareArrays(a, b []interface{}) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := CompareKeys(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareFloat(float64(len(a)), float64(len(b)))
}

func compareObjects(a, b map[string]interface{}) int {
	an := sortedKeys(a)
	bn := sortedKeys(b)
	n := len(an)
	if len(bn) < n {
		n = len(bn)
	}
	for i := 0; i < n; i++ {
		if an[i] != bn[i] {
			if an[i] < bn[i] {
				return -1
			}
			return 1
		}
		if c := CompareKeys(a[an[i]], b[bn[i]]); c != 0 {
			return c
		}
	}
	return compareFloat(float64(len(an)), float64(len(bn)))
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lessRow orders two Rows by (key, then docId ascending to break ties).
func lessRow(a, b Row) bool {
	if c := CompareKeys(a.Key, b.Key); c != 0 {
		return c < 0
	}
	return a.DocID < b.DocID
}
