package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// DocxExtractor 读取 word/document.xml，按段落拼接文本
type DocxExtractor struct{}

// ExtractTextFromBytes 提取 docx 中的段落文本，段落之间以换行分隔
func (DocxExtractor) ExtractTextFromBytes(_ context.Context, data []byte, uri string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开docx压缩包失败 %s: %w", uri, err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx缺少 %s: %s", docxBodyPart, uri)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("读取 %s 失败: %w", docxBodyPart, err)
	}
	defer rc.Close()

	return paragraphsText(rc)
}

// paragraphsText 遍历 WordprocessingML，<w:t> 为文本，<w:tab/> 为制表符，<w:br/> 与 </w:p> 为换行
func paragraphsText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
		inProps    bool // <w:pPr> 中的 <w:tab> 是制表位定义，不是文本
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("解析docx XML失败: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "pPr":
				inProps = true
			case "tab":
				if !inProps {
					current.WriteByte('\t')
				}
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "pPr":
				inProps = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.Join(paragraphs, "\n"), nil
}
