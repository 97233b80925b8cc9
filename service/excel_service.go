package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SherlinC/livecuecard/models"
	"github.com/SherlinC/livecuecard/utils"
)

// TemplateSheetName is the sheet carrying card rows in import and template files.
const TemplateSheetName = "手卡数据"

// TemplateFilename is the fixed download name of the generated template.
const TemplateFilename = "手卡模板.xlsx"

// TemplateHeaders is the canonical column scheme (Chinese labels, the scheme the
// shipped template uses). Import recognizes exactly these names.
var TemplateHeaders = []string{
	"产品标题",
	"市场价",
	"直播价",
	"佣金比例",
	"折扣信息",
	"平台",
	"品牌名称",
	"品牌Logo",
	"颜色",
	"尺码",
	"材料",
	"设计",
	"主图",
	"背面图",
	"直播间福利",
	"活动时间",
	"发货类型",
	"发货时间",
	"退换政策",
	"包含运费险",
	"直播口令",
	"尺码表JSON",
	"尺码推荐JSON",
}

// ParseResult carries every parsed row plus the non-fatal row-level errors.
// Rows are never dropped: a row missing its title is still returned (with an
// empty title) alongside an error naming its 1-based row number.
type ParseResult struct {
	Rows   []models.CardData `json:"rows"`
	Errors []string          `json:"errors"`
}

// ExcelService converts between the tabular card format and CardData records.
type ExcelService struct{}

// NewExcelService creates a new ExcelService.
func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ParseWorkbook reads the first sheet of an xlsx file and converts each data
// row to a CardData record. Later sheets are ignored.
func (s *ExcelService) ParseWorkbook(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	result := &ParseResult{Rows: []models.CardData{}, Errors: []string{}}
	if len(rows) < 2 {
		return result, nil
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	cell := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for i, row := range rows[1:] {
		rowNum := i + 1 // 1-based data row number, used in error messages
		card := models.DefaultCardData()

		card.ProductTitle = cell(row, "产品标题")
		card.BrandName = cell(row, "品牌名称")
		card.BrandLogo = cell(row, "品牌Logo")
		card.MarketPrice = parseNumber(cell(row, "市场价"))
		card.LivePrice = parseNumber(cell(row, "直播价"))
		card.Commission = utils.ClampCommission(parseNumber(cell(row, "佣金比例")))
		card.Discount = cell(row, "折扣信息")
		card.MainImage = cell(row, "主图")
		card.BackImage = cell(row, "背面图")
		card.ActivityTime = cell(row, "活动时间")
		card.Command = cell(row, "直播口令")

		if platforms := utils.SplitMultiValue(cell(row, "平台")); len(platforms) > 0 {
			card.Platforms = platforms
		}
		card.Colors = utils.SplitMultiValue(cell(row, "颜色"))
		if len(card.Colors) > 0 {
			card.Color = card.Colors[0]
		}
		card.Sizes = utils.NormalizeSizes(utils.SplitMultiValue(cell(row, "尺码")))
		card.Benefits = utils.SplitMultiValue(cell(row, "直播间福利"))
		for _, m := range utils.SplitMultiValue(cell(row, "材料")) {
			card.Materials = append(card.Materials, models.MaterialItem{Text: m})
		}
		for _, d := range utils.SplitMultiValue(cell(row, "设计")) {
			card.Designs = append(card.Designs, models.DesignItem{Text: d})
		}

		card.ShippingInfo = models.ShippingInfo{
			Type:         parseShippingType(cell(row, "发货类型")),
			ShippingTime: cell(row, "发货时间"),
			ReturnPolicy: cell(row, "退换政策"),
			Insurance:    utils.ParseBoolean(cell(row, "包含运费险")),
		}

		// Structured JSON cells are lenient: an empty cell silently takes the
		// default, a present-but-malformed cell takes the default AND is
		// reported, so silent data loss stays visible to the caller.
		if chart, ok := parseSizeChart(cell(row, "尺码表JSON")); ok {
			card.SizeChart = chart
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行 尺码表JSON 无法解析", rowNum))
		}
		if recs, ok := parseSizeRecs(cell(row, "尺码推荐JSON")); ok {
			card.SizeRecommendations = recs
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行 尺码推荐JSON 无法解析", rowNum))
		}

		if card.ProductTitle == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行缺少 产品标题", rowNum))
		}
		result.Rows = append(result.Rows, card)
	}

	return result, nil
}

func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseShippingType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instock", "现货":
		return models.ShippingInstock
	}
	return models.ShippingPresale
}

// parseSizeChart returns (chart, true) for an empty or well-formed cell and
// (default, false) for a malformed one.
func parseSizeChart(raw string) (models.SizeChart, bool) {
	def := models.SizeChart{Headers: models.DefaultSizeChartHeaders(), Sizes: map[string]map[string]string{}}
	if raw == "" {
		return def, true
	}
	var chart models.SizeChart
	if err := json.Unmarshal([]byte(raw), &chart); err != nil || chart.Headers == nil {
		return def, false
	}
	if chart.Sizes == nil {
		chart.Sizes = map[string]map[string]string{}
	}
	return chart, true
}

func parseSizeRecs(raw string) ([]models.SizeRecommendation, bool) {
	if raw == "" {
		return []models.SizeRecommendation{}, true
	}
	var recs []models.SizeRecommendation
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return []models.SizeRecommendation{}, false
	}
	return recs, true
}

// CardToRow serializes a card back into the canonical column order. Multi-value
// fields join with ";", booleans render as 是/否, structured fields as JSON.
func CardToRow(c models.CardData) []interface{} {
	materials := make([]string, 0, len(c.Materials))
	for _, m := range c.Materials {
		materials = append(materials, m.Text)
	}
	designs := make([]string, 0, len(c.Designs))
	for _, d := range c.Designs {
		designs = append(designs, d.Text)
	}
	insurance := "否"
	if c.ShippingInfo.Insurance {
		insurance = "是"
	}
	shippingType := "预售"
	if c.ShippingInfo.Type == models.ShippingInstock {
		shippingType = "现货"
	}
	chartJSON, _ := json.Marshal(c.SizeChart)
	recsJSON, _ := json.Marshal(c.SizeRecommendations)

	return []interface{}{
		c.ProductTitle,
		c.MarketPrice,
		c.LivePrice,
		c.Commission,
		c.Discount,
		strings.Join(c.Platforms, ";"),
		c.BrandName,
		c.BrandLogo,
		strings.Join(c.Colors, ";"),
		strings.Join(c.Sizes, ";"),
		strings.Join(materials, ";"),
		strings.Join(designs, ";"),
		c.MainImage,
		c.BackImage,
		strings.Join(c.Benefits, ";"),
		c.ActivityTime,
		shippingType,
		c.ShippingInfo.ShippingTime,
		c.ShippingInfo.ReturnPolicy,
		insurance,
		c.Command,
		string(chartJSON),
		string(recsJSON),
	}
}

// WriteRows builds a single-sheet workbook with the canonical headers and one
// row per card.
func (s *ExcelService) WriteRows(cards []models.CardData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TemplateSheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	headers := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(TemplateSheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	for i, c := range cards {
		row := CardToRow(c)
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell reference: %w", err)
		}
		if err := f.SetSheetRow(TemplateSheetName, cellRef, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTemplate builds the downloadable template: the canonical headers plus
// one illustrative sample row. It has no parameters and no caller-visible
// failure mode beyond the encode error.
func (s *ExcelService) WriteTemplate() ([]byte, error) {
	return s.WriteRows([]models.CardData{SampleCard()})
}

// SampleCard is the example row shipped in the template.
func SampleCard() models.CardData {
	card := models.DefaultCardData()
	card.ProductTitle = "毛领奢美人马甲 两面穿羊毛保暖马夹"
	card.MarketPrice = 1102
	card.LivePrice = 914
	card.Commission = 25
	card.Platforms = []string{"小红书", "淘宝", "抖音"}
	card.BrandName = "WEIQIN"
	card.BrandLogo = "https://picsum.photos/id/12/120/120"
	card.Colors = []string{"黑色", "白色"}
	card.Color = "黑色"
	card.Sizes = []string{"0", "2"}
	card.Materials = []models.MaterialItem{
		{Text: "衣身100%仿羊毛"},
		{Text: "优质环保狐狸毛毛领"},
	}
	card.Designs = []models.DesignItem{
		{Text: "西装封里"},
		{Text: "U形拉链"},
		{Text: "正反可穿"},
	}
	card.MainImage = "https://picsum.photos/id/200/600/600"
	card.BackImage = "https://picsum.photos/id/201/600/600"
	card.Benefits = []string{"盲盒发夹(1)+海岛花发夹(1)"}
	card.ActivityTime = "此刻至2026-01-31"
	card.ShippingInfo = models.ShippingInfo{
		Type:         models.ShippingPresale,
		ShippingTime: "5天内发货",
		ReturnPolicy: "7天无理由",
		Insurance:    true,
	}
	card.Command = "dbisFPXYET2J"
	card.SizeRecommendations = []models.SizeRecommendation{
		{Height: 160, Weight: 50, RecommendedSize: "0"},
		{Height: 170, Weight: 60, RecommendedSize: "2"},
	}
	return card
}
