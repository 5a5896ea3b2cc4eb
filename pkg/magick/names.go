package magick

// Name is the adapter name in the raster registry.
const Name = "imagick"

// Aliases are accepted by raster.Lookup as well.
var Aliases = []string{"magick", "imagemagick"}
