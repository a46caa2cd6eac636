package relaysvc

import (
	"fmt"
	"regexp"
	"strings"
)

// IdentifierType classifies how a configured device identifier is matched
// against input sources.
type IdentifierType uint8

const (
	// IdentifierPath matches the exact device node path.
	IdentifierPath IdentifierType = iota
	// IdentifierMAC matches the hardware address, ignoring case and
	// separator style (":" vs "-").
	IdentifierMAC
	// IdentifierName matches a case-insensitive substring of the device
	// name.
	IdentifierName
)

var (
	pathPattern = regexp.MustCompile(`^/dev/input/event.*$`)
	macPattern  = regexp.MustCompile(`^([0-9a-fA-F]{2}[:-]){5}([0-9a-fA-F]{2})$`)
)

// Identifier is one configured device selector. Classification happens once
// at parse time; matching is case-insensitive except for paths.
type Identifier struct {
	Value string
	Type  IdentifierType

	normalized string
}

// ParseIdentifier classifies a raw identifier string. The zero value of
// every string that is neither a device node path nor a hardware address is
// a name fragment, so parsing never fails.
func ParseIdentifier(raw string) Identifier {
	switch {
	case pathPattern.MatchString(raw):
		return Identifier{Value: raw, Type: IdentifierPath, normalized: raw}
	case macPattern.MatchString(raw):
		return Identifier{Value: raw, Type: IdentifierMAC, normalized: normalizeMAC(raw)}
	default:
		return Identifier{Value: raw, Type: IdentifierName, normalized: strings.ToLower(raw)}
	}
}

func normalizeMAC(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", ":"))
}

// Matches reports whether the identifier selects the given source.
func (id Identifier) Matches(info SourceInfo) bool {
	switch id.Type {
	case IdentifierPath:
		return info.Path == id.normalized
	case IdentifierMAC:
		return info.Uniq != "" && normalizeMAC(info.Uniq) == id.normalized
	default:
		return strings.Contains(strings.ToLower(info.Name), id.normalized)
	}
}

func (id Identifier) String() string {
	switch id.Type {
	case IdentifierPath:
		return fmt.Sprintf("path %q", id.Value)
	case IdentifierMAC:
		return fmt.Sprintf("address %q", id.Value)
	default:
		return fmt.Sprintf("name %q", id.Value)
	}
}

// Resolve matches configured identifiers against the currently enumerated
// sources. It returns, per identifier, the sources it selects (minus those
// rejected by exclude), plus the identifiers that selected nothing at all.
// With autoDiscover set, every non-excluded source is selected regardless of
// identifiers.
func Resolve(ids []Identifier, autoDiscover bool, candidates []SourceInfo, exclude func(SourceInfo) bool) (matched []SourceInfo, missing []Identifier) {
	if autoDiscover {
		for _, info := range candidates {
			if exclude != nil && exclude(info) {
				continue
			}
			matched = append(matched, info)
		}
		return matched, nil
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, id := range ids {
		found := false
		for _, info := range candidates {
			if !id.Matches(info) {
				continue
			}
			found = true
			if exclude != nil && exclude(info) {
				continue
			}
			if _, dup := seen[info.Path]; dup {
				continue
			}
			seen[info.Path] = struct{}{}
			matched = append(matched, info)
		}
		if !found {
			missing = append(missing, id)
		}
	}
	return matched, missing
}
