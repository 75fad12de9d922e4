package crawler

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
)

// Page selectors of the marketplace product page
const (
	selSpotlightPrice     = ".spotlight__price"
	selSpotlightCondition = ".spotlight__condition"
	selSpotlightShipping  = ".spotlight__shipping"
	selShippingPrice      = ".shipping-messages__price"
	selListing            = ".listing-item"
	selListingPromo       = ".listing-item__listing-data__listo"
	selListingInfo        = ".listing-item__listing-data__info"
	selListingPrice       = ".listing-item__listing-data__info__price"
	selListingCondition   = ".listing-item__listing-data__info__condition a"
	selImage              = ".lazy-image__wrapper img"
)

// waitSelectors are awaited by the browser before the page content is read.
var waitSelectors = []string{
	"span" + selSpotlightPrice,
	"section" + selSpotlightCondition,
	selListingPrice,
	selListingCondition,
	selImage,
}

// ParseListingPage scrapes the spotlight offer, the offer grid and the
// product image from a product page.
func ParseListingPage(reader io.Reader) (*model.RawListingContent, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewParsing("crawler", "failed to parse HTML", err)
	}

	content := &model.RawListingContent{}

	img := doc.Find(selImage).First()
	content.ImageSrc, _ = img.Attr("src")
	content.ImageSrcset, _ = img.Attr("srcset")

	if price := doc.Find(selSpotlightPrice).First(); price.Length() > 0 {
		shipping := doc.Find(selSpotlightShipping).First()
		content.Spotlight = &model.RawListing{
			PriceText:         text(price),
			ConditionText:     text(doc.Find(selSpotlightCondition).First()),
			ShippingText:      text(shipping),
			ShippingPriceText: text(shipping.Find(selShippingPrice).First()),
		}
	}

	doc.Find(selListing).Each(func(_ int, s *goquery.Selection) {
		if s.Find(selListingPromo).Length() > 0 {
			content.Grid = append(content.Grid, model.RawListing{Promo: true})
			return
		}

		info := s.Find(selListingInfo).First()
		content.Grid = append(content.Grid, model.RawListing{
			PriceText:         text(s.Find(selListingPrice).First()),
			ConditionText:     text(s.Find(selListingCondition).First()),
			ShippingText:      text(info.Children().Eq(2)),
			ShippingPriceText: text(info.Find(selShippingPrice).First()),
		})
	})

	return content, nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
