// Package imageio moves images between files and the stage buffers:
// witness photographs and sprite atlases in, rendered passes and frame
// metadata out.
//
// Decoding covers PNG, JPEG, GIF, BMP, TIFF and WebP. Writing is PNG only;
// scalar passes are written as 16-bit greyscale.
package imageio
