package prom

import (
	"strconv"
	"strings"

	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// EscapeLabelValue escapes s for use between the quotes of a label value.
func EscapeLabelValue(s string) string {
	return labelEscaper.Replace(s)
}

// Label returns name="value" with value escaped.
func Label(name, value string) string {
	return name + `="` + EscapeLabelValue(value) + `"`
}

// Labels joins the non-empty label fragments with commas.
func Labels(fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		if f == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f)
	}
	return b.String()
}

// VdevName returns the hierarchical name of v. parent is the name of the parent vdev, or empty
// for the root, which is named after its type alone.
func VdevName(v *vdev.Vdev, parent string) string {
	if parent == "" {
		return v.Type
	}
	return parent + "/" + v.Type + "-" + strconv.FormatUint(v.ID, 10)
}

// VdevLabels returns vdev="<name>" plus path="<path>" when v has a device path.
func VdevLabels(v *vdev.Vdev, parent string) string {
	l := Label("vdev", VdevName(v, parent))
	if v.Path != "" {
		l += "," + Label("path", v.Path)
	}
	return l
}
