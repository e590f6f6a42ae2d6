package e2etest

import (
	"fmt"
	neturl "net/url"

	"github.com/PuerkitoBio/goquery"
)

// FindInputForLabel finds the input element associated with a label in the given form.
func FindInputForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	// Find the label with matching text
	label := form.Find(fmt.Sprintf("label:contains(%s)", labelText))
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}

	// Get the associated input's name attribute
	var input *goquery.Selection
	if id, exists := label.Attr("for"); exists {
		// If label has 'for' attribute, find input by ID
		input = form.Find(fmt.Sprintf("input#%s,textarea#%s", id, id))
	} else {
		// Otherwise, find input within label
		input = label.Find("input")
	}

	if input.Length() == 0 {
		return nil, fmt.Errorf("input not found for label: %s", labelText)
	}

	return input, nil
}

// FindSelectForLabel finds the select element associated with a label in the given form.
func FindSelectForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	// Find the label with matching text
	label := form.Find(fmt.Sprintf("label:contains(%s)", labelText))
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}

	// Get the associated select element
	var selectElement *goquery.Selection
	if id, exists := label.Attr("for"); exists {
		// If label has 'for' attribute, find select by ID
		selectElement = form.Find(fmt.Sprintf("select#%s", id))
	} else {
		// Otherwise, find select within label
		selectElement = label.Find("select")
	}

	if selectElement.Length() == 0 {
		return nil, fmt.Errorf("select element not found for label: %s", labelText)
	}

	return selectElement, nil
}

// IsMultipleSelect checks if a select element has the multiple attribute.
func IsMultipleSelect(selectElement *goquery.Selection) bool {
	_, exists := selectElement.Attr("multiple")
	return exists
}

// FindForm finds a form in the doc identified with action formActionUrlPath and returns the form selection.
func FindForm(doc *goquery.Document, formActionURLPath string) (*goquery.Selection, error) {
	form := doc.Find(fmt.Sprintf("form[action='%s']", formActionURLPath))
	if form.Length() == 0 {
		return nil, fmt.Errorf("form not found: %s", formActionURLPath)
	}
	return form, nil
}

// FormValues collects the values a browser would submit for form without pressing any submit button: text-like
// inputs, checked checkboxes and radios, selected options and textareas. Disabled controls and file inputs are
// skipped.
func FormValues(form *goquery.Selection) neturl.Values {
	values := neturl.Values{}
	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, el *goquery.Selection) {
		if _, disabled := el.Attr("disabled"); disabled {
			return
		}
		name, _ := el.Attr("name")
		switch goquery.NodeName(el) {
		case "textarea":
			values.Add(name, el.Text())
		case "select":
			el.Find("option[selected]").Each(func(_ int, opt *goquery.Selection) {
				values.Add(name, optionValue(opt))
			})
		default:
			typ, _ := el.Attr("type")
			switch typ {
			case "submit", "button", "file", "image", "reset":
				return
			case "checkbox", "radio":
				if _, checked := el.Attr("checked"); !checked {
					return
				}
				v, ok := el.Attr("value")
				if !ok {
					v = "on"
				}
				values.Add(name, v)
			default:
				v, _ := el.Attr("value")
				values.Add(name, v)
			}
		}
	})
	return values
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return opt.Text()
}
