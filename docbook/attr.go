package docbook

// AttrKey identifies a recognized attribute name. Unrecognized attribute
// names are kept on the Node as raw key/value pairs (Attribute.Key ==
// attrKeyRaw) so the formatter can still special-case a vendor attribute it
// cares about without the whole attribute set being closed.
type AttrKey int

const (
	attrKeyRaw AttrKey = iota
	AttrChoice
	AttrClass
	AttrClose
	AttrCols
	AttrDefinition
	AttrEndterm
	AttrEntityref
	AttrFileref
	AttrHref
	AttrID
	AttrLinkend
	AttrLocalinfo
	AttrName
	AttrOpen
	AttrPublic
	AttrRep
	AttrSystem
	AttrTargetdoc
	AttrTargetptr
	AttrURL
	AttrXlinkHref
)

var attrKeyNames = map[string]AttrKey{
	"choice":      AttrChoice,
	"class":       AttrClass,
	"close":       AttrClose,
	"cols":        AttrCols,
	"DEFINITION":  AttrDefinition,
	"endterm":     AttrEndterm,
	"entityref":   AttrEntityref,
	"fileref":     AttrFileref,
	"href":        AttrHref,
	"id":          AttrID,
	"linkend":     AttrLinkend,
	"localinfo":   AttrLocalinfo,
	"NAME":        AttrName,
	"open":        AttrOpen,
	"PUBLIC":      AttrPublic,
	"rep":         AttrRep,
	"SYSTEM":      AttrSystem,
	"targetdoc":   AttrTargetdoc,
	"targetptr":   AttrTargetptr,
	"url":         AttrURL,
	"xlink:href":  AttrXlinkHref,
}

// AttrVal identifies a recognized, closed-enum attribute value. Any other
// value is kept as a raw string on the Attribute (AttrVal == attrValRaw).
type AttrVal int

const (
	attrValRaw AttrVal = iota
	AttrValEvent
	AttrValIPAddress
	AttrValMonospaced
	AttrValNorepeat
	AttrValOpt
	AttrValPlain
	AttrValRepeat
	AttrValReq
	AttrValSystemname
)

var attrValNames = map[string]AttrVal{
	"event":      AttrValEvent,
	"ipaddress":  AttrValIPAddress,
	"monospaced": AttrValMonospaced,
	"norepeat":   AttrValNorepeat,
	"opt":        AttrValOpt,
	"plain":      AttrValPlain,
	"repeat":     AttrValRepeat,
	"req":        AttrValReq,
	"systemname": AttrValSystemname,
}

// Attribute is a single resolved key/value pair attached to a Node. Raw
// holds the original string value regardless of whether Val resolved to a
// closed enum member, so formatters needing the literal text (e.g. a URL)
// never have to re-derive it.
type Attribute struct {
	Key     AttrKey
	KeyRaw  string // original attribute name; always set
	Val     AttrVal
	Raw     string // original attribute value; always set
}

func resolveAttrKey(name string) (AttrKey, bool) {
	k, ok := attrKeyNames[name]
	return k, ok
}

func resolveAttrVal(value string) (AttrVal, bool) {
	v, ok := attrValNames[value]
	return v, ok
}
