package models

import (
	"sort"
	"strings"
)

// Diocese names as shown to users.
const (
	DioceseTokyo     = "Tổng giáo phận Tokyo"
	DioceseOsaka     = "Tổng giáo phận Osaka-Takamatsu"
	DioceseNagasaki  = "Tổng giáo phận Nagasaki"
	DioceseSapporo   = "Giáo phận Sapporo"
	DioceseSendai    = "Giáo phận Sendai"
	DioceseNiigata   = "Giáo phận Niigata"
	DioceseSaitama   = "Giáo phận Saitama"
	DioceseYokohama  = "Giáo phận Yokohama"
	DioceseNagoya    = "Giáo phận Nagoya"
	DioceseKyoto     = "Giáo phận Kyoto"
	DioceseHiroshima = "Giáo phận Hiroshima"
	DioceseFukuoka   = "Giáo phận Fukuoka"
	DioceseOita      = "Giáo phận Oita"
	DioceseKagoshima = "Giáo phận Kagoshima"
	DioceseNaha      = "Giáo phận Naha"
)

// ProvinceDiocese pairs a prefecture with its diocese.
type ProvinceDiocese struct {
	Province string `json:"province"`
	Diocese  string `json:"diocese"`
}

var provinces = []ProvinceDiocese{
	{"Hokkaido", DioceseSapporo},
	{"Aomori", DioceseSendai},
	{"Iwate", DioceseSendai},
	{"Miyagi", DioceseSendai},
	{"Akita", DioceseNiigata},
	{"Yamagata", DioceseNiigata},
	{"Fukushima", DioceseSendai},
	{"Ibaraki", DioceseSaitama},
	{"Tochigi", DioceseSaitama},
	{"Gunma", DioceseSaitama},
	{"Saitama", DioceseSaitama},
	{"Chiba", DioceseTokyo},
	{"Tokyo", DioceseTokyo},
	{"Kanagawa", DioceseYokohama},
	{"Niigata", DioceseNiigata},
	{"Toyama", DioceseNagoya},
	{"Ishikawa", DioceseNagoya},
	{"Fukui", DioceseNagoya},
	{"Yamanashi", DioceseYokohama},
	{"Nagano", DioceseYokohama},
	{"Gifu", DioceseNagoya},
	{"Shizuoka", DioceseYokohama},
	{"Aichi", DioceseNagoya},
	{"Mie", DioceseKyoto},
	{"Shiga", DioceseKyoto},
	{"Kyoto", DioceseKyoto},
	{"Osaka", DioceseOsaka},
	{"Hyogo", DioceseOsaka},
	{"Nara", DioceseKyoto},
	{"Wakayama", DioceseOsaka},
	{"Tottori", DioceseHiroshima},
	{"Shimane", DioceseHiroshima},
	{"Okayama", DioceseHiroshima},
	{"Hiroshima", DioceseHiroshima},
	{"Yamaguchi", DioceseHiroshima},
	{"Tokushima", DioceseOsaka},
	{"Kagawa", DioceseOsaka},
	{"Ehime", DioceseOsaka},
	{"Kochi", DioceseOsaka},
	{"Fukuoka", DioceseFukuoka},
	{"Saga", DioceseFukuoka},
	{"Nagasaki", DioceseNagasaki},
	{"Kumamoto", DioceseFukuoka},
	{"Oita", DioceseOita},
	{"Miyazaki", DioceseOita},
	{"Kagoshima", DioceseKagoshima},
	{"Okinawa", DioceseNaha},
}

var provinceLookup = func() map[string]ProvinceDiocese {
	idx := make(map[string]ProvinceDiocese, len(provinces))
	for _, p := range provinces {
		idx[normaliseProvince(p.Province)] = p
	}
	return idx
}()

func normaliseProvince(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{" prefecture", "-ken", "-fu", "-to", "-do"} {
		n = strings.TrimSuffix(n, suffix)
	}
	return strings.ReplaceAll(n, "ō", "o")
}

// Provinces returns all prefectures in their conventional north to south order.
func Provinces() []ProvinceDiocese {
	out := make([]ProvinceDiocese, len(provinces))
	copy(out, provinces)
	return out
}

// CanonicalProvince returns the canonical spelling of a prefecture name.
func CanonicalProvince(name string) (string, bool) {
	p, ok := provinceLookup[normaliseProvince(name)]
	return p.Province, ok
}

// DioceseForProvince returns the diocese covering a prefecture.
func DioceseForProvince(name string) (string, bool) {
	p, ok := provinceLookup[normaliseProvince(name)]
	return p.Diocese, ok
}

// Dioceses returns the distinct diocese names sorted ascending.
func Dioceses() []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, p := range provinces {
		if _, ok := seen[p.Diocese]; ok {
			continue
		}
		seen[p.Diocese] = struct{}{}
		result = append(result, p.Diocese)
	}
	sort.Strings(result)
	return result
}
