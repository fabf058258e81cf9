package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/techmatters/terraso-go/pkg/model"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	// excelCellLimit is the longest value a spreadsheet cell holds.
	excelCellLimit = 32767
	csvTimeLayout  = "2006-01-02 15:04:05"
	lineBreakMark  = "\u23ce"
	utf8BOM        = "\ufeff"
)

var csvColumns = []string{
	"Site ID",
	"Site name",
	"Project name",
	"Latitude",
	"Longitude",
	"Elevation",
	"Last updated (UTC)",
	"Slope steepness (degrees)",
	"Down slope",
	"Surface cracks",
	"Site notes",
	"User selected soil",
	"Depth label",
	"Depth start (cm)",
	"Depth end (cm)",
	"Rock fragment volume",
	"Texture",
	"Color",
}

var rockFragmentLabels = map[string]string{
	"VOLUME_0_1":   "0–1%",
	"VOLUME_1_15":  "1–15%",
	"VOLUME_15_35": "15–35%",
	"VOLUME_35_60": "35–60%",
	"VOLUME_60":    ">60%",
}

var textureLabels = map[string]string{
	"CLAY":            "Clay",
	"CLAY_LOAM":       "Clay Loam",
	"LOAM":            "Loam",
	"LOAMY_SAND":      "Loamy Sand",
	"SAND":            "Sand",
	"SANDY_CLAY":      "Sandy Clay",
	"SANDY_CLAY_LOAM": "Sandy Clay Loam",
	"SANDY_LOAM":      "Sandy Loam",
	"SILT":            "Silt",
	"SILTY_CLAY":      "Silty Clay",
	"SILTY_CLAY_LOAM": "Silty Clay Loam",
	"SILT_LOAM":       "Silt Loam",
}

var crackingLabels = map[string]string{
	"NO_CRACKING":           "No cracks",
	"SURFACE_CRACKING_ONLY": "Surface cracks only",
	"DEEP_VERTICAL_CRACKS":  "Deep vertical cracks",
}

func label(labels map[string]string, v *string) string {
	if v == nil {
		return ""
	}
	if l, ok := labels[*v]; ok {
		return l
	}
	return *v
}

// enumNumber turns VALUE_8_5 or SUBSTEP_2_5 into 8.5 or 2.5.
func enumNumber(v *string) string {
	if v == nil {
		return ""
	}
	parts := strings.SplitN(*v, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.ReplaceAll(parts[1], "_", ".")
}

// MunsellColor renders stored color choices as a Munsell notation such as
// "7.5YR 4/3". It is empty until hue, value and chroma are all known.
func MunsellColor(substep, hue, value, chroma *string) string {
	if hue == nil || value == nil || chroma == nil {
		return ""
	}
	return fmt.Sprintf("%s%s %s/%s", enumNumber(substep), *hue, enumNumber(value), enumNumber(chroma))
}

// Render encodes sites in the requested format.
func Render(sites []SiteExport, name, format string) (*File, error) {
	if name == "" {
		name = "export"
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		body, err := json.MarshalIndent(map[string]interface{}{"sites": sites}, "", "  ")
		if err != nil {
			return nil, err
		}
		return &File{Name: name + ".json", ContentType: "application/json", Body: body}, nil
	case FormatCSV:
		body, err := SitesToCSV(sites)
		if err != nil {
			return nil, err
		}
		return &File{Name: name + ".csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBadFormat, format)
}

// SitesToCSV writes one row per depth interval, or a single row for a site
// without intervals. The output starts with a byte order mark so
// spreadsheets detect UTF-8.
func SitesToCSV(sites []SiteExport) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}
	for i := range sites {
		for _, row := range flattenSite(&sites[i]) {
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func flattenNotes(notes []NoteExport) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		content := strings.ReplaceAll(strings.ReplaceAll(n.Content, "\r\n", "\n"), "\n", lineBreakMark)
		parts = append(parts, strings.Join([]string{content, n.AuthorEmail, n.CreatedAt.UTC().Format(csvTimeLayout)}, " | "))
	}
	return strings.Join(parts, ";")
}

func truncate(v string) string {
	if len(v) <= excelCellLimit {
		return v
	}
	return v[:excelCellLimit-20] + " [TRUNCATED]"
}

func flattenSite(site *SiteExport) [][]string {
	projectName := ""
	if site.Project != nil {
		projectName = site.Project.Name
	}
	sd := &site.SoilData
	base := []string{
		site.ID.String(),
		site.Name,
		projectName,
		formatFloat(site.Latitude),
		formatFloat(site.Longitude),
		optionalFloat(site.Elevation),
		formatTime(site.UpdatedAt),
		optionalInt(sd.SlopeSteepnessDegree),
		sd.DownSlope,
		label(crackingLabels, &sd.SurfaceCracksSelect),
		flattenNotes(site.Notes),
		optionalString(site.SoilMetadata.SelectedSoilID),
	}

	byInterval := map[model.DepthInterval]*DepthExport{}
	for i := range sd.DepthDependentData {
		byInterval[sd.DepthDependentData[i].DepthInterval] = &sd.DepthDependentData[i]
	}

	var rows [][]string
	for _, iv := range sd.DepthIntervals {
		row := append(append([]string{}, base...), iv.Label, strconv.Itoa(iv.Start), strconv.Itoa(iv.End))
		if dd, ok := byInterval[iv.DepthInterval]; ok {
			row = append(row, label(rockFragmentLabels, dd.RockFragmentVolume), label(textureLabels, dd.Texture), dd.ColorMunsell)
		} else {
			row = append(row, "", "", "")
		}
		rows = append(rows, truncateRow(row))
	}
	if len(rows) == 0 {
		row := append(append([]string{}, base...), "", "", "", "", "", "")
		rows = append(rows, truncateRow(row))
	}
	return rows
}

func truncateRow(row []string) []string {
	for i := range row {
		row[i] = truncate(row[i])
	}
	return row
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(csvTimeLayout)
}
