package review

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// EmailData is everything the review email shows.
type EmailData struct {
	CustomerName string
	OrderRef     string
	Shop         string
	Products     []ProductLine
	Total        string // Formatted amount, empty when unknown
}

// ProductLine is one product of the order.
type ProductLine struct {
	Reference string
	Name      string
	Quantity  int32
}

func (p ProductLine) label() string {
	var b strings.Builder
	b.WriteString("Produit référence : ")
	b.WriteString(p.Reference)
	if p.Name != "" {
		b.WriteString(" (")
		b.WriteString(p.Name)
		b.WriteString(")")
	}
	if p.Quantity > 1 {
		fmt.Fprintf(&b, " x %d", p.Quantity)
	}
	return b.String()
}

func greeting(name string) string {
	if name == "" {
		return "Bonjour,"
	}
	return "Bonjour " + name + ","
}

// ReviewEmail renders the HTML body of the review request. Every
// interpolated value is escaped.
func ReviewEmail(d EmailData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		var b strings.Builder

		b.WriteString("<!DOCTYPE html>\n<html lang=\"fr\">\n<head><meta charset=\"utf-8\"><title>")
		b.WriteString(e("Votre avis sur la commande " + d.OrderRef))
		b.WriteString("</title></head>\n<body style=\"font-family: Arial, sans-serif; color: #222;\">\n")

		if d.CustomerName == "" {
			b.WriteString("<p>Bonjour,</p>\n")
		} else {
			b.WriteString("<p>Bonjour <strong>" + e(d.CustomerName) + "</strong>,</p>\n")
		}
		b.WriteString("<p>Merci pour votre commande <strong>" + e(d.OrderRef) + "</strong> chez <em>" + e(d.Shop) + "</em>.</p>\n")

		if len(d.Products) > 0 {
			b.WriteString("<p>Nous espérons que vous avez apprécié vos produits :</p>\n<ul>\n")
			for _, p := range d.Products {
				b.WriteString("<li>" + e(p.label()) + "</li>\n")
			}
			b.WriteString("</ul>\n")
		}
		if d.Total != "" {
			b.WriteString("<p>Montant de la commande : " + e(d.Total) + "</p>\n")
		}

		b.WriteString("<p>Pourriez-vous prendre un instant pour partager votre expérience ?</p>\n")
		b.WriteString("<p>Merci,<br>L'équipe " + e(d.Shop) + "</p>\n</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PlainText renders the text alternative of ReviewEmail.
func PlainText(d EmailData) string {
	var b strings.Builder

	b.WriteString(greeting(d.CustomerName) + "\n\n")
	fmt.Fprintf(&b, "Merci pour votre commande %s chez %s.\n", d.OrderRef, d.Shop)

	if len(d.Products) > 0 {
		b.WriteString("\nNous espérons que vous avez apprécié vos produits :\n")
		for _, p := range d.Products {
			b.WriteString("  - " + p.label() + "\n")
		}
	}
	if d.Total != "" {
		fmt.Fprintf(&b, "\nMontant de la commande : %s\n", d.Total)
	}

	b.WriteString("\nPourriez-vous prendre un instant pour partager votre expérience ?\n\n")
	fmt.Fprintf(&b, "Merci,\nL'équipe %s\n", d.Shop)
	return b.String()
}
