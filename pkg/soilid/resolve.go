package soilid

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/techmatters/terraso-go/pkg/model"
)

// flexValue decodes a JSON scalar the algorithm may send as a string or a
// number.
type flexValue struct {
	str    string
	num    float64
	isNum  bool
	isNull bool
}

func (v *flexValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		v.isNull = true
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &v.str)
	}
	if err := json.Unmarshal(b, &v.num); err != nil {
		return err
	}
	v.isNum = true
	return nil
}

func (v flexValue) String() string {
	if v.isNum {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

func (v flexValue) Float() float64 {
	if v.isNum {
		return v.num
	}
	f, _ := strconv.ParseFloat(v.str, 64)
	return f
}

func (v flexValue) displayed() bool {
	return !v.isNull && v.String() != notDisplayed
}

// rank converts the one-based rank the algorithm reports.
func (v flexValue) rank() (int, error) {
	n, err := strconv.Atoi(v.String())
	if err != nil {
		return 0, fmt.Errorf("invalid rank %q", v.String())
	}
	return n - 1, nil
}

type soilList struct {
	SoilList []soilMatch `json:"soilList"`
}

type soilMatch struct {
	ID struct {
		Component string    `json:"component"`
		ScoreLoc  flexValue `json:"score_loc"`
		RankLoc   flexValue `json:"rank_loc"`
	} `json:"id"`
	Site struct {
		SiteData struct {
			ComponentID     flexValue `json:"componentID"`
			DataSource      string    `json:"dataSource"`
			MinCompDistance float64   `json:"minCompDistance"`
			Slope           *float64  `json:"slope"`
			TaxSubgroup     string    `json:"taxsubgrp"`
			SdeURL          string    `json:"sdeURL"`
			NirrCapCl       string    `json:"nirrcapcl"`
			NirrCapScl      string    `json:"nirrcapscl"`
		} `json:"siteData"`
		SiteDescription string `json:"siteDescription"`
	} `json:"site"`
	ESD struct {
		ESD struct {
			EcoClassID   json.RawMessage `json:"ecoclassid"`
			EcoClassName json.RawMessage `json:"ecoclassname"`
			ESDURL       json.RawMessage `json:"esd_url"`
		} `json:"ESD"`
	} `json:"esd"`
	BottomDepth   map[string]float64   `json:"bottom_depth"`
	Texture       map[string]flexValue `json:"texture"`
	RockFragments map[string]flexValue `json:"rock_fragments"`
	Munsell       map[string]*string   `json:"munsell"`
}

type rankedMatch struct {
	ComponentID  flexValue `json:"componentID"`
	ScoreLoc     flexValue `json:"score_loc"`
	RankLoc      flexValue `json:"rank_loc"`
	ScoreData    flexValue `json:"score_data"`
	RankData     flexValue `json:"rank_data"`
	ScoreDataLoc flexValue `json:"score_data_loc"`
	RankDataLoc  flexValue `json:"rank_data_loc"`
}

// ResolveTexture maps an algorithm texture name to the stored enum value.
func ResolveTexture(texture string) *string {
	if texture == "" {
		return nil
	}
	out := strings.ReplaceAll(strings.ToUpper(texture), " ", "_")
	return &out
}

// ResolveRockFragmentVolume buckets a percentage.
func ResolveRockFragmentVolume(v float64) string {
	switch {
	case v <= 1:
		return "VOLUME_0_1"
	case v <= 15:
		return "VOLUME_1_15"
	case v <= 35:
		return "VOLUME_15_35"
	case v <= 60:
		return "VOLUME_35_60"
	default:
		return "VOLUME_60"
	}
}

// ParseTexture is the inverse of ResolveTexture.
func ParseTexture(texture *string) *string {
	if texture == nil {
		return nil
	}
	out := strings.ToLower(strings.ReplaceAll(*texture, "_", " "))
	return &out
}

var rockFragmentRanges = map[string]string{
	"VOLUME_0_1":   "0-1%",
	"VOLUME_1_15":  "1-15%",
	"VOLUME_15_35": "15-35%",
	"VOLUME_35_60": "35-60%",
}

func ParseRockFragmentVolume(v *string) *string {
	if v == nil {
		return nil
	}
	out, ok := rockFragmentRanges[*v]
	if !ok {
		out = ">60%"
	}
	return &out
}

func parseColorLAB(c *LABColor) []float64 {
	if c == nil {
		return nil
	}
	return []float64{c.L, c.A, c.B}
}

// ParseRankInput builds the rank request fields from user data. A first
// interval that does not start at the surface gets an empty placeholder
// horizon.
func ParseRankInput(data InputData) RankRequest {
	req := RankRequest{
		SoilHorizon:  []*string{},
		HorizonDepth: []int{},
		RFVDepth:     []*string{},
		LabColor:     [][]float64{},
		Slope:        data.Slope,
		Cracks:       data.SurfaceCracks != nil && *data.SurfaceCracks == "DEEP_VERTICAL_CRACKS",
	}
	depths := data.DepthDependentData
	if len(depths) > 0 && depths[0].DepthInterval.Start != 0 {
		req.HorizonDepth = append(req.HorizonDepth, depths[0].DepthInterval.End)
		req.SoilHorizon = append(req.SoilHorizon, nil)
		req.RFVDepth = append(req.RFVDepth, nil)
		req.LabColor = append(req.LabColor, nil)
		depths = depths[1:]
	}
	for _, d := range depths {
		req.HorizonDepth = append(req.HorizonDepth, d.DepthInterval.End)
		req.SoilHorizon = append(req.SoilHorizon, ParseTexture(d.Texture))
		req.RFVDepth = append(req.RFVDepth, ParseRockFragmentVolume(d.RockFragmentVolume))
		req.LabColor = append(req.LabColor, parseColorLAB(d.ColorLAB))
	}
	return req
}

func resolveSoilData(m *soilMatch) SoilData {
	keys := make([]string, 0, len(m.BottomDepth))
	for k := range m.BottomDepth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})

	out := SoilData{Slope: m.Site.SiteData.Slope, DepthDependentData: make([]DepthData, 0, len(keys))}
	prev := 0
	for _, k := range keys {
		bottom := int(m.BottomDepth[k])
		d := DepthData{DepthInterval: model.DepthInterval{Start: prev, End: bottom}}
		if t, ok := m.Texture[k]; ok && !t.isNum && !t.isNull {
			d.Texture = ResolveTexture(t.str)
		}
		if r, ok := m.RockFragments[k]; ok && r.isNum {
			v := ResolveRockFragmentVolume(r.num)
			d.RockFragmentVolume = &v
		}
		d.MunsellColorString = m.Munsell[k]
		out.DepthDependentData = append(out.DepthDependentData, d)
		prev = bottom
	}
	return out
}

func resolveEcologicalSite(m *soilMatch) *EcologicalSite {
	esd := m.ESD.ESD
	id := firstString(esd.EcoClassID)
	if id == "" {
		return nil
	}
	return &EcologicalSite{ID: id, Name: firstString(esd.EcoClassName), URL: firstString(esd.ESDURL)}
}

// firstString reads an algorithm field that is either a string or a list
// of strings. Missing, null and malformed values read as "".
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func resolveSoilInfo(m *soilMatch) SoilInfo {
	sd := m.Site.SiteData
	return SoilInfo{
		SoilSeries: SoilSeries{
			Name:               m.ID.Component,
			TaxonomySubgroup:   sd.TaxSubgroup,
			Description:        m.Site.SiteDescription,
			FullDescriptionURL: sd.SdeURL,
		},
		LandCapabilityClass: LandCapabilityClass{
			CapabilityClass: sd.NirrCapCl,
			SubClass:        sd.NirrCapScl,
		},
		EcologicalSite: resolveEcologicalSite(m),
		SoilData:       resolveSoilData(m),
	}
}

func matchInfo(score, rank flexValue) (MatchInfo, error) {
	r, err := rank.rank()
	if err != nil {
		return MatchInfo{}, err
	}
	return MatchInfo{Score: score.Float(), Rank: r}, nil
}

// locationMatchesFromList resolves the displayed matches of a soil list.
func locationMatchesFromList(raw json.RawMessage) ([]LocationBasedMatch, error) {
	var list soilList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode soil list: %w", err)
	}
	matches := make([]LocationBasedMatch, 0, len(list.SoilList))
	for i := range list.SoilList {
		m := &list.SoilList[i]
		if !m.ID.RankLoc.displayed() {
			continue
		}
		info, err := matchInfo(m.ID.ScoreLoc, m.ID.RankLoc)
		if err != nil {
			return nil, err
		}
		matches = append(matches, LocationBasedMatch{
			DataSource:                m.Site.SiteData.DataSource,
			DistanceToNearestMapUnitM: m.Site.SiteData.MinCompDistance,
			Match:                     info,
			SoilInfo:                  resolveSoilInfo(m),
		})
	}
	return matches, nil
}

// dataMatchesFromRank joins ranked components to their soil list entries.
// Ranked components missing from the list are skipped.
func dataMatchesFromRank(raw json.RawMessage, ranked []rankedMatch) ([]DataBasedMatch, error) {
	var list soilList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode soil list: %w", err)
	}
	byComponent := make(map[int]*soilMatch, len(list.SoilList))
	for i := range list.SoilList {
		byComponent[int(list.SoilList[i].Site.SiteData.ComponentID.Float())] = &list.SoilList[i]
	}

	matches := make([]DataBasedMatch, 0, len(ranked))
	for _, r := range ranked {
		if !r.RankLoc.displayed() || !r.RankData.displayed() || !r.RankDataLoc.displayed() {
			continue
		}
		m, ok := byComponent[int(r.ComponentID.Float())]
		if !ok {
			continue
		}
		loc, err := matchInfo(r.ScoreLoc, r.RankLoc)
		if err != nil {
			return nil, err
		}
		data, err := matchInfo(r.ScoreData, r.RankData)
		if err != nil {
			return nil, err
		}
		combined, err := matchInfo(r.ScoreDataLoc, r.RankDataLoc)
		if err != nil {
			return nil, err
		}
		matches = append(matches, DataBasedMatch{
			DataSource:                m.Site.SiteData.DataSource,
			DistanceToNearestMapUnitM: m.Site.SiteData.MinCompDistance,
			LocationMatch:             loc,
			DataMatch:                 data,
			CombinedMatch:             combined,
			SoilInfo:                  resolveSoilInfo(m),
		})
	}
	return matches, nil
}
