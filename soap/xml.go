package soap

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/minios-linux/objtrans/metadata"
)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault   *soapFault `xml:"Fault"`
		Content []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// serviceError strips the namespace prefix of the fault code ("sf:") and
// the code repeated at the start of the fault string.
func (f *soapFault) serviceError() *metadata.ServiceError {
	code := f.Code
	if i := strings.LastIndex(code, ":"); i >= 0 {
		code = code[i+1:]
	}
	return &metadata.ServiceError{
		StatusCode: code,
		Message:    strings.TrimPrefix(f.String, code+": "),
	}
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

type listRequest struct {
	XMLName     xml.Name    `xml:"listMetadata"`
	Queries     []listQuery `xml:"queries"`
	AsOfVersion string      `xml:"asOfVersion,omitempty"`
}

type listQuery struct {
	Folder string `xml:"folder,omitempty"`
	Type   string `xml:"type"`
}

type readRequest struct {
	XMLName   xml.Name `xml:"readMetadata"`
	Type      string   `xml:"type"`
	FullNames []string `xml:"fullNames"`
}

type updateRequest struct {
	XMLName  xml.Name   `xml:"updateMetadata"`
	Metadata []fieldXML `xml:"metadata"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type listResponse struct {
	Result []struct {
		FullName string `xml:"fullName"`
		Type     string `xml:"type"`
		FileName string `xml:"fileName"`
	} `xml:"result"`
}

type readResponse[T any] struct {
	Records []T `xml:"result>records"`
}

type updateResponse struct {
	Result []saveResultXML `xml:"result"`
}

type saveResultXML struct {
	FullName string `xml:"fullName"`
	Success  bool   `xml:"success"`
	Errors   []struct {
		Fields     []string `xml:"fields"`
		Message    string   `xml:"message"`
		StatusCode string   `xml:"statusCode"`
	} `xml:"errors"`
}

func (r saveResultXML) saveResult() metadata.SaveResult {
	out := metadata.SaveResult{FullName: r.FullName, Success: r.Success}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, metadata.ServiceError{StatusCode: e.StatusCode, Message: e.Message, Fields: e.Fields})
	}
	return out
}

type objectXML struct {
	FullName string     `xml:"fullName"`
	Fields   []fieldXML `xml:"fields"`
}

func (o objectXML) definition() metadata.ObjectDefinition {
	def := metadata.ObjectDefinition{FullName: o.FullName}
	for _, f := range o.Fields {
		def.Fields = append(def.Fields, f.FieldRecord)
	}
	return def
}

type translationXML struct {
	FullName string `xml:"fullName"`
	Fields   []struct {
		Name              string `xml:"name"`
		Label             string `xml:"label"`
		RelationshipLabel string `xml:"relationshipLabel"`
		PicklistValues    []struct {
			MasterLabel string `xml:"masterLabel"`
			Translation string `xml:"translation"`
		} `xml:"picklistValues"`
	} `xml:"fields"`
}

func (t translationXML) translation() metadata.ObjectTranslation {
	out := metadata.ObjectTranslation{FullName: t.FullName}
	for _, f := range t.Fields {
		ft := metadata.FieldTranslation{Name: f.Name, Label: f.Label, RelationshipLabel: f.RelationshipLabel}
		for _, pv := range f.PicklistValues {
			ft.PicklistValues = append(ft.PicklistValues, metadata.PicklistTranslation{MasterLabel: pv.MasterLabel, Translation: pv.Translation})
		}
		out.Fields = append(out.Fields, ft)
	}
	return out
}

// ---------------------------------------------------------------------------
// CustomField codec
// ---------------------------------------------------------------------------

// rawElement captures one child element both as text and as raw XML.
type rawElement struct {
	XMLName xml.Name
	Inner   string `xml:",innerxml"`
	Text    string `xml:",chardata"`
}

type valueSetXML struct {
	Values []struct {
		FullName string `xml:"fullName"`
		Label    string `xml:"label"`
	} `xml:"valueSetDefinition>value"`
}

type legacyPicklistXML struct {
	Values []struct {
		FullName string `xml:"fullName"`
	} `xml:"picklistValues"`
}

// fieldXML is a CustomField element. Elements the model does not interpret
// are kept in Extra and written back unchanged.
type fieldXML struct {
	metadata.FieldRecord
}

func (f *fieldXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var el rawElement
			if err := d.DecodeElement(&el, &t); err != nil {
				return err
			}
			if err := f.assign(el); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (f *fieldXML) assign(el rawElement) error {
	switch el.XMLName.Local {
	case "fullName":
		f.FullName = el.Text
	case "label":
		f.Label = el.Text
	case "description":
		f.Description = el.Text
	case "type":
		f.Type = el.Text
	case "relationshipLabel":
		f.RelationshipLabel = el.Text
	case "inlineHelpText":
		f.InlineHelpText = el.Text
	case "valueSet":
		var vs valueSetXML
		if err := xml.Unmarshal([]byte("<valueSet>"+el.Inner+"</valueSet>"), &vs); err != nil {
			return err
		}
		set := &metadata.ValueSet{}
		for _, v := range vs.Values {
			set.Values = append(set.Values, metadata.PicklistValue{FullName: v.FullName, Label: v.Label})
		}
		f.ValueSet = set
		f.Extra = append(f.Extra, metadata.Property{Name: el.XMLName.Local, Raw: el.Inner})
	case "picklist":
		// Pre-38.0 picklists have no labels; the value name is the label.
		var pl legacyPicklistXML
		if err := xml.Unmarshal([]byte("<picklist>"+el.Inner+"</picklist>"), &pl); err != nil {
			return err
		}
		if f.ValueSet == nil {
			set := &metadata.ValueSet{}
			for _, v := range pl.Values {
				set.Values = append(set.Values, metadata.PicklistValue{FullName: v.FullName, Label: v.FullName})
			}
			f.ValueSet = set
		}
		f.Extra = append(f.Extra, metadata.Property{Name: el.XMLName.Local, Raw: el.Inner})
	default:
		f.Extra = append(f.Extra, metadata.Property{Name: el.XMLName.Local, Raw: el.Inner})
	}
	return nil
}

type innerXML struct {
	Inner string `xml:",innerxml"`
}

// MarshalXML writes the field with its elements in schema order: fullName
// first, the rest alphabetically. ValueSet is written from Extra only.
func (f fieldXML) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xsi:type"}, Value: metadata.TypeCustomField})

	var elems []metadata.Property
	for _, p := range []struct{ name, value string }{
		{"description", f.Description},
		{"inlineHelpText", f.InlineHelpText},
		{"label", f.Label},
		{"relationshipLabel", f.RelationshipLabel},
		{"type", f.Type},
	} {
		if p.value == "" {
			continue
		}
		var buf bytes.Buffer
		if err := xml.EscapeText(&buf, []byte(p.value)); err != nil {
			return err
		}
		elems = append(elems, metadata.Property{Name: p.name, Raw: buf.String()})
	}
	elems = append(elems, f.Extra...)
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].Name < elems[j].Name })

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	var name bytes.Buffer
	if err := xml.EscapeText(&name, []byte(f.FullName)); err != nil {
		return err
	}
	if err := e.EncodeElement(innerXML{Inner: name.String()}, xml.StartElement{Name: xml.Name{Local: "fullName"}}); err != nil {
		return err
	}
	for _, el := range elems {
		if err := e.EncodeElement(innerXML{Inner: el.Raw}, xml.StartElement{Name: xml.Name{Local: el.Name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
